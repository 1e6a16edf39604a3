package main

import (
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/viant/imgsim/index"
)

var resultsPage = template.Must(template.New("results").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>imgsim results</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.grid { display: flex; flex-wrap: wrap; gap: 1em; }
figure { margin: 0; width: 220px; }
img { max-width: 220px; max-height: 220px; }
</style>
</head>
<body>
<h1>Query</h1>
<img src="{{.Query}}" alt="query">
<h1>Top {{len .Matches}} matches</h1>
<div class="grid">
{{range $i, $m := .Matches}}<figure>
<img src="{{$m.Src}}" alt="{{$m.Label}}">
<figcaption>{{inc $i}}. {{$m.Label}} ({{printf "%.4f" $m.Score}})</figcaption>
</figure>
{{end}}</div>
</body>
</html>
`))

type pageMatch struct {
	Label string
	Score float64
	Src   template.URL
}

type page struct {
	Query   template.URL
	Matches []pageMatch
}

func newQueryCmd(a *app) *cobra.Command {
	var topK int
	var htmlOut string
	cmd := &cobra.Command{
		Use:   "query <image>",
		Short: "Print the images most similar to a query image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService(nil)
			if err != nil {
				return err
			}
			if err := svc.Load(a.cfg.IndexDir); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if topK <= 0 {
				topK = a.cfg.Server.TopK
			}
			results, err := svc.SearchImage(cmd.Context(), data, topK)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, r := range results {
				fmt.Fprintf(out, "%d. %s  %.4f\n", i+1, r.Label, r.Score)
			}
			if htmlOut == "" {
				return nil
			}
			if err := writeResultsPage(htmlOut, args[0], a.cfg.Dataset, results); err != nil {
				return err
			}
			fmt.Fprintf(out, "results page written to %s\n", htmlOut)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "topk", "k", 0, "number of matches (default server.top_k)")
	cmd.Flags().StringVar(&htmlOut, "html", "", "also write an HTML results page to this path")
	return cmd
}

func writeResultsPage(path, query, dataset string, results []index.Result) error {
	p := page{Query: fileURL(query)}
	for _, r := range results {
		p.Matches = append(p.Matches, pageMatch{
			Label: r.Label,
			Score: r.Score,
			Src:   fileURL(filepath.Join(dataset, filepath.FromSlash(r.Label))),
		})
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := resultsPage.Execute(f, p); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// fileURL returns a file:// URL for a local path. The path comes from the
// local dataset, so it is trusted in the generated page.
func fileURL(path string) template.URL {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return template.URL(u.String())
}
