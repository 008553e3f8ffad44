package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cssident/internal/ident"
	"cssident/internal/identerr"
	"cssident/internal/identmap"
)

var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] <map>...",
		Short: "Validate identifier map files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  checkExecution,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json|yaml)")
	return cmd
}

type mapReport struct {
	Path    string `json:"path" yaml:"path"`
	Valid   bool   `json:"valid" yaml:"valid"`
	Entries int    `json:"entries" yaml:"entries"`
	Last    string `json:"last,omitempty" yaml:"last,omitempty"`
	// Position is the allocation index of Last, i.e. how many identifiers a
	// generator has gone through to reach it.
	Position int    `json:"position,omitempty" yaml:"position,omitempty"`
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

func checkExecution(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "pretty", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, json or yaml)", format)
	}

	reports := make([]mapReport, 0, len(args))
	invalid := 0
	for _, path := range args {
		r := checkMap(path)
		if !r.Valid {
			invalid++
		}
		reports = append(reports, r)
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(reports)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err = enc.Encode(reports); err == nil {
			err = enc.Close()
		}
	default:
		err = renderReportsPretty(out, reports)
	}
	if err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d map(s) invalid", invalid, len(reports))
	}
	return nil
}

func checkMap(path string) mapReport {
	r := mapReport{Path: path}
	data, _, err := identmap.Read(path, false)
	if err != nil {
		return r.fail(err)
	}
	m, last, err := identmap.Load(data, path)
	if err != nil {
		return r.fail(err)
	}
	r.Valid = true
	r.Entries = m.Len()
	r.Last = last
	if idx, ok := ident.Parse(last); ok {
		// MaxIndex fits an int on 64-bit platforms
		r.Position, _ = idx.Count()
	}
	return r
}

func (r mapReport) fail(err error) mapReport {
	r.Valid = false
	r.Error = err.Error()
	if kind := identerr.KindOf(err); kind != 0 {
		r.Kind = kind.String()
	}
	return r
}

func renderReportsPretty(out io.Writer, reports []mapReport) error {
	ok := color.New(color.FgGreen, color.Bold).Sprint("ok")
	bad := color.New(color.FgRed, color.Bold).Sprint("invalid")
	for _, r := range reports {
		var err error
		if r.Valid {
			_, err = fmt.Fprintf(out, "%s %s: %d entries, last %q\n", ok, r.Path, r.Entries, r.Last)
		} else {
			_, err = fmt.Fprintf(out, "%s %s: %s\n", bad, r.Path, r.Error)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
