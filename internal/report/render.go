package report

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/clearpeak-lending/report-cli/internal/model"
)

// Renderer fills report templates with a placeholder context. Templates are
// plain text; document packaging is handled downstream by the publishing
// team's tooling.
type Renderer struct {
	templatesDir string
}

// NewRenderer creates a renderer reading templates from dir.
func NewRenderer(dir string) *Renderer {
	return &Renderer{templatesDir: dir}
}

var templateFuncs = template.FuncMap{
	// dash renders undefined metrics as "-" instead of a zero that would
	// read as a real measurement.
	"dash": func(v any) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprint(v)
	},
	"usd": func(v any) string {
		f, ok := v.(float64)
		if !ok {
			return "-"
		}
		return usdPrinter.Sprintf("$%.0f", f)
	},
	"img": func(ref model.ImageRef) string {
		return fmt.Sprintf("[image %s width=%.2fin]", filepath.Base(ref.Path), ref.WidthInches)
	},
}

// Render executes the named template file against ctx and writes the result
// to outPath.
func (r *Renderer) Render(templateFile string, ctx model.ReportContext, outPath string) error {
	path := filepath.Join(r.templatesDir, templateFile)
	tpl, err := template.New(templateFile).Funcs(templateFuncs).Option("missingkey=zero").ParseFiles(path)
	if err != nil {
		return eris.Wrapf(err, "render: parse template %s", templateFile)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return eris.Wrapf(err, "render: create output %s", outPath)
	}
	defer out.Close()

	if err := tpl.Execute(out, ctx); err != nil {
		return eris.Wrapf(err, "render: execute template %s", templateFile)
	}
	return nil
}
