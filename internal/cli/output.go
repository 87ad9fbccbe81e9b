// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keytypes.
//
// go-keytypes is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.


package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintFields prints name/value pairs in order. JSON output uses the names
// as object keys.
func (p *Printer) PrintFields(fields ...Field) error {
	switch p.format {
	case OutputFormatJSON:
		obj := make(map[string]any, len(fields))
		for _, f := range fields {
			obj[f.Name] = f.Value
		}
		return p.printJSON(obj)
	case OutputFormatText:
		if len(fields) == 1 {
			fmt.Fprintln(p.writer, fields[0].Value)
			return nil
		}
		width := 0
		for _, f := range fields {
			width = max(width, len(f.Name))
		}
		for _, f := range fields {
			fmt.Fprintf(p.writer, "%-*s  %v\n", width+1, f.Name+":", f.Value)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// Field is one named output value.
type Field struct {
	Name  string
	Value any
}

// PrintList prints a titled list of names
func (p *Printer) PrintList(title string, items []string) error {
	switch p.format {
	case OutputFormatJSON:
		if items == nil {
			items = []string{}
		}
		return p.printJSON(map[string]any{title: items})
	case OutputFormatText:
		if len(items) == 0 {
			fmt.Fprintf(p.writer, "No %s found\n", title)
			return nil
		}
		for _, item := range items {
			fmt.Fprintln(p.writer, item)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

// PrintRaw writes data unchanged in text mode and as a base64 field in
// JSON mode.
func (p *Printer) PrintRaw(name string, data []byte) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{name: data})
	}
	_, err := p.writer.Write(data)
	return err
}

func (p *Printer) printJSON(v any) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
