package compiler

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/vsariola/moog/engine"
)

//go:embed templates/*
var templateFS embed.FS

type Compiler struct {
	Template *template.Template
}

// New returns a new compiler using the default templates
func New() (*Compiler, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.*")
	if err != nil {
		return nil, fmt.Errorf(`could not parse the default templates: %v`, err)
	}
	return &Compiler{Template: tmpl}, nil
}

func NewFromTemplates(templateDirectory string) (*Compiler, error) {
	globPtrn := filepath.Join(templateDirectory, "*.*")
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseGlob(globPtrn)
	if err != nil {
		return nil, fmt.Errorf(`could not create template based on directory "%v": %v`, templateDirectory, err)
	}
	return &Compiler{Template: tmpl}, nil
}

// Synth describes the compiled voice of the synth. The result maps file
// extensions to contents: .dot for Graphviz, .txt for the evaluation order
// and .md for the parameter table.
func (com *Compiler) Synth(synth *engine.Synth, cfgName string) (map[string]string, error) {
	templates := []string{"graph.dot", "graph.txt", "params.md"}
	macros := NewMacros(synth, cfgName)
	retmap := map[string]string{}
	for _, templateName := range templates {
		populatedTemplate, extension, err := com.compile(templateName, macros)
		if err != nil {
			return nil, fmt.Errorf(`could not execute template "%v": %v`, templateName, err)
		}
		retmap[extension] = populatedTemplate
	}
	return retmap, nil
}

func (com *Compiler) compile(templateName string, data interface{}) (string, string, error) {
	result := bytes.NewBufferString("")
	err := com.Template.ExecuteTemplate(result, templateName, data)
	extension := filepath.Ext(templateName)
	return result.String(), extension, err
}
