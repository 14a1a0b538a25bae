// Package hostpage renders the HTML page that hosts an embedded report.
package hostpage

import (
	"bytes"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pbiembed/pbiembed/internal/embed"
	"github.com/pbiembed/pbiembed/internal/webpart"
)

const DefaultSDKURL = "https://cdn.jsdelivr.net/npm/powerbi-client@2.23.1/dist/powerbi.min.js"

type Options struct {
	Title  string
	SDKURL string
}

type pageData struct {
	Title       string
	SDKURL      string
	Config      *embed.Configuration
	Placeholder string
	Width       string
	MinHeight   string
	HideSlicer  bool
	Rendered    string
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { margin: 0; font-family: "Segoe UI", sans-serif; }
  #report { width: {{.Width}}; }
  #report iframe { border: 0; }
  .placeholder { padding: 2em; color: #605e5c; }
</style>
</head>
<body>
{{- if .Config}}
<div id="report" style="min-height: {{.MinHeight}}"></div>
<script src="{{.SDKURL}}"></script>
<script>
(function () {
  var pbi = window["powerbi-client"];
  var models = pbi.models;
  var config = {{.Config}};
  config.tokenType = models.TokenType.Aad;
  var report = powerbi.embed(document.getElementById("report"), config);
  report.on({{.Rendered}}, async function () {
    var page = await report.getActivePage();
    var visuals = await page.getVisuals();
    for (var v of visuals.filter(function (v) { return v.type === "slicer"; })) {
      console.debug("Slicer Config (" + v.name + ")", await v.getSlicerState());
      if ({{.HideSlicer}}) {
        await v.setVisualDisplayState(models.VisualContainerDisplayMode.Hidden);
      }
    }
  });
})();
</script>
{{- else}}
<div class="placeholder">{{.Placeholder}}</div>
{{- end}}
</body>
</html>
`))

// Render writes the host page for v.
func Render(w io.Writer, v webpart.View, opts Options) error {
	data := pageData{
		Title:       opts.Title,
		SDKURL:      opts.SDKURL,
		Config:      v.Config,
		Placeholder: v.Placeholder,
		Width:       "100%",
		MinHeight:   "0",
		HideSlicer:  v.Options.HideSlicer,
		Rendered:    embed.EventRendered,
	}
	if data.Title == "" {
		data.Title = "Power BI report"
		if v.Report.Name != "" {
			data.Title = v.Report.Name
		}
	}
	if data.SDKURL == "" {
		data.SDKURL = DefaultSDKURL
	}
	if data.Placeholder == "" && v.Config == nil {
		data.Placeholder = webpart.Placeholder
	}
	if v.WidthPx > 0 {
		data.Width = strconv.Itoa(v.WidthPx) + "px"
	}
	if h, err := strconv.Atoi(v.HeightPx); err == nil && h > 0 {
		data.MinHeight = strconv.Itoa(h) + "px"
	}
	return pageTmpl.Execute(w, data)
}

// Handler serves the page for whatever view is current at request time.
func Handler(view func() webpart.View, opts Options, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		var buf bytes.Buffer
		if err := Render(&buf, view(), opts); err != nil {
			logger.Error("render host page", "err", err)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(buf.Bytes())
	})
}
