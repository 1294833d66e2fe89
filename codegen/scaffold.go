package codegen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// scaffoldFiles maps each template to its location in the generated project.
var scaffoldFiles = map[string]string{
	"templates/app.py.tmpl":           "src/app.py",
	"templates/health.py.tmpl":        "src/health.py",
	"templates/prediction.py.tmpl":    "src/prediction.py",
	"templates/model_loader.py.tmpl":  "src/model_loader.py",
	"templates/test_health.py.tmpl":   "tests/test_health.py",
	"templates/Dockerfile.tmpl":       "Dockerfile",
	"templates/requirements.txt.tmpl": "requirements.txt",
	"templates/README.md.tmpl":        "README.md",
}

// touchFiles are created empty.
var touchFiles = []string{
	"src/__init__.py",
	"tests/__init__.py",
}

// Scaffold renders the FastAPI service wrapper for a model into outputDir.
// Existing files are overwritten; init is expected to run on a fresh branch.
func Scaffold(modelName, outputDir string) error {
	params := HandlerParams{ModelName: modelName}
	for tmplPath, outPath := range scaffoldFiles {
		tmpl, err := template.ParseFS(templatesFS, tmplPath)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %v", tmplPath, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, params); err != nil {
			return fmt.Errorf("failed to render %s: %v", outPath, err)
		}
		if err := writeFile(filepath.Join(outputDir, outPath), buf.Bytes()); err != nil {
			return err
		}
	}
	for _, outPath := range touchFiles {
		if err := writeFile(filepath.Join(outputDir, outPath), nil); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %v", path, err)
	}
	return nil
}
