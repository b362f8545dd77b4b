package web

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home", "register", "verify", "login", "dashboard", "faq", "terms", "know", "notfound",
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// pageRender renders each page inside the shared layout. It implements
// gin's render.HTMLRender.
type pageRender struct {
	pages map[string]*template.Template
}

func newPageRender(loc *time.Location) (*pageRender, error) {
	funcs := template.FuncMap{
		"monthName": func(m time.Month) string { return monthNames[m-1] },
		"fmtTime": func(t time.Time) string {
			return t.In(loc).Format("02/01/2006 15:04")
		},
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &pageRender{pages: pages}, nil
}

// Instance renders the layout with the content block of page name.
func (p *pageRender) Instance(name string, data any) render.Render {
	return render.HTML{Template: p.pages[name], Name: "layout", Data: data}
}
