// Package bruteforce provides the exact scorer: every query is scored
// against every row by dot product, which equals cosine similarity for unit
// vectors, and the top K are kept in a bounded heap.
package bruteforce
