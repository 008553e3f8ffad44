package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cssident/internal/ident"
	"cssident/internal/identmap"
)

var genCmd = newGenCmd()

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen [flags] [key...]",
		Short: "Allocate identifiers for arbitrary keys",
		Long: `Allocate an identifier for every key given as argument, or for every non-empty line
of standard input when no key is given, and print "key<TAB>identifier" lines. With --map
the keys already in the map keep their identifiers; --save writes the map back.`,
		RunE: genExecution,
	}
	flags := cmd.Flags()
	flags.String("map", "", "identifier map to load first (a missing file is fine)")
	flags.Bool("save", false, "write the map back to --map")
	flags.Int("map-indent", identmap.DefaultIndent, "indent of the saved map (0 = compact)")
	flags.StringSlice("exclude", nil, `identifiers never produced; a trailing "*" excludes a prefix`)
	flags.String("start-ident", "", "last identifier considered used")
	return cmd
}

func genExecution(cmd *cobra.Command, args []string) error {
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	flags := cmd.Flags()
	mapPath, err := flags.GetString("map")
	if err != nil {
		return err
	}
	save, err := flags.GetBool("save")
	if err != nil {
		return err
	}
	if save && mapPath == "" {
		return fmt.Errorf("--save requires --map")
	}
	indent, err := flags.GetInt("map-indent")
	if err != nil {
		return err
	}
	var opts ident.Options
	if flags.Changed("exclude") {
		if opts.Exclude, err = flags.GetStringSlice("exclude"); err != nil {
			return err
		}
		if opts.Exclude == nil {
			opts.Exclude = []string{}
		}
	}
	if opts.StartIdent, err = flags.GetString("start-ident"); err != nil {
		return err
	}

	gen, err := ident.New(opts)
	if err != nil {
		return err
	}
	if mapPath != "" {
		data, found, err := identmap.Read(mapPath, true)
		if err != nil {
			return err
		}
		if found {
			m, _, err := identmap.Load(data, mapPath)
			if err != nil {
				return err
			}
			gen.ImportMap(m)
			logger.Debug("loaded CSS identifier map", "path", mapPath, "entries", m.Len())
		}
	}

	keys := args
	if len(keys) == 0 {
		if keys, err = readKeys(cmd.InOrStdin()); err != nil {
			return err
		}
	}
	out := bufio.NewWriter(cmd.OutOrStdout())
	for _, key := range keys {
		if _, err := fmt.Fprintf(out, "%s\t%s\n", key, gen.GenerateIdent(key)); err != nil {
			return err
		}
	}
	if err := out.Flush(); err != nil {
		return err
	}

	if save {
		return identmap.Save(mapPath, identmap.Stringify(gen.Map(), indent), logger)
	}
	return nil
}

func readKeys(r io.Reader) ([]string, error) {
	if r == nil {
		r = os.Stdin
	}
	var keys []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		keys = append(keys, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}
	return keys, nil
}
