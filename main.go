// tagindex indexes the symbols of a source tree and answers tag queries.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/tagindex/internal/config"
	"github.com/phobologic/tagindex/internal/globaltags"
	"github.com/phobologic/tagindex/internal/graph"
	"github.com/phobologic/tagindex/internal/model"
	"github.com/phobologic/tagindex/internal/parse"
	"github.com/phobologic/tagindex/internal/ranking"
	"github.com/phobologic/tagindex/internal/tags"
	"github.com/phobologic/tagindex/internal/toon"
	"github.com/phobologic/tagindex/internal/workspace"
)

var version = "dev"

const maxSuggestions = 5

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := runContext(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	return runContext(context.Background(), args, stdout, stderr)
}

func runContext(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app carries the persistent flags and what setup derives from them.
type app struct {
	stdout, stderr io.Writer

	configPath string
	root       string
	verbose    bool
	globals    []string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:           "tagindex",
		Short:         "Index source symbols and query them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default <root>/"+config.FileName+")")
	pf.StringVar(&a.root, "root", ".", "project root directory")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.StringArrayVar(&a.globals, "global", nil, "global tag file to load, as path[:language] (repeatable)")

	cmd.AddCommand(
		a.indexCmd(),
		a.findCmd(),
		a.completeCmd(),
		a.parentsCmd(),
		a.functionCmd(),
		a.buildGlobalsCmd(),
		initCmd(stderr),
		versionCmd(stdout),
	)
	return cmd
}

// setup loads the configuration for a.root and installs the logger.
func (a *app) setup() error {
	abs, err := filepath.Abs(a.root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", abs)
	}
	a.root = abs

	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load(abs)
	}
	if err != nil {
		return err
	}

	level := a.cfg.LogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// openWorkspace scans the project root into a fresh workspace and loads the
// configured global tag files.
func (a *app) openWorkspace() (*workspace.Workspace, error) {
	if err := a.setup(); err != nil {
		return nil, err
	}
	ws := workspace.New(workspace.WithLogger(a.log))

	proj, err := workspace.NewProject(a.root, parse.New(), a.log)
	if err != nil {
		ws.Close()
		return nil, err
	}
	if err := proj.Scan(a.cfg.DiscoverOptions()); err != nil {
		ws.Close()
		return nil, err
	}
	a.log.Debug("project scanned", "root", a.root, "files", len(proj.Files()))
	ws.AddObject(proj)
	ws.Update(true, false, false)

	specs := make([]config.GlobalTags, 0, len(a.cfg.Globals)+len(a.globals))
	specs = append(specs, a.cfg.Globals...)
	for _, g := range a.globals {
		specs = append(specs, splitGlobal(g))
	}
	for _, g := range specs {
		l, err := model.ParseLanguage(g.Language)
		if err != nil {
			ws.Close()
			return nil, fmt.Errorf("global tags %s: %w", g.Path, err)
		}
		if l == model.LangAny {
			l = model.LangC
		}
		if err := ws.LoadGlobalTags(g.Path, l); err != nil {
			ws.Close()
			return nil, err
		}
	}
	return ws, nil
}

// splitGlobal parses path[:language]. A suffix that is not a language name is
// part of the path.
func splitGlobal(s string) config.GlobalTags {
	if i := strings.LastIndex(s, ":"); i > 0 {
		if l, err := model.ParseLanguage(s[i+1:]); err == nil && l != model.LangAny {
			return config.GlobalTags{Path: s[:i], Language: s[i+1:]}
		}
	}
	return config.GlobalTags{Path: s}
}

func (a *app) indexCmd() *cobra.Command {
	var rank int
	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Scan a project and print the workspace tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				a.root = args[0]
			}
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			ws.Dump(a.stdout, 0)
			if rank <= 0 {
				return nil
			}

			h, err := graph.New(ws.Tags().Extract(model.ClassTypes).Tags)
			if err != nil {
				return err
			}
			scores := h.Rank()
			if len(scores) > rank {
				scores = scores[:rank]
			}
			rows := make([][]string, len(scores))
			for i, s := range scores {
				rows[i] = []string{s.Name, strconv.FormatFloat(s.Score, 'f', 4, 64), strings.Join(h.Bases(s.Name), " ")}
			}
			_, _ = fmt.Fprintln(a.stdout, toon.EncodeTable("classes", []string{"name", "rank", "bases"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&rank, "rank", 0, "also list the N most inherited-from classes")
	return cmd
}

func (a *app) findCmd() *cobra.Command {
	var (
		partial  bool
		kinds    string
		langName string
		scope    string
		noGlobal bool
		file     string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "find NAME",
		Short: "Find tags by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := model.ParseTypeMask(kinds)
			if err != nil {
				return err
			}
			l, err := model.ParseLanguage(langName)
			if err != nil {
				return err
			}
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			name := args[0]
			var found []*model.Tag
			if cmd.Flags().Changed("scope") {
				found = ws.FindScoped(name, scope, mask, nil, partial, l, !noGlobal)
			} else {
				found = ws.Find(name, mask, nil, partial, l)
				if noGlobal {
					found = dropGlobal(found)
				}
			}
			found = ranking.Limit(ranking.FilterByFile(found, file), limit)

			_, _ = fmt.Fprintln(a.stdout, toon.EncodeTags(found, a.root))
			if len(found) == 0 {
				suggestions := ranking.Suggest(name, knownNames(ws), maxSuggestions, ranking.DefaultThreshold)
				if len(suggestions) > 0 {
					_, _ = fmt.Fprintln(a.stdout, toon.EncodeList("suggestions", "name", suggestions))
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&partial, "partial", false, "match names by prefix")
	f.StringVar(&kinds, "kind", "", "comma-separated tag kinds (default any)")
	f.StringVar(&langName, "lang", "", "only tags of this language")
	f.StringVar(&scope, "scope", "", "only tags in exactly this scope (empty for file level)")
	f.BoolVar(&noGlobal, "no-global", false, "skip global tags")
	f.StringVar(&file, "file", "", "only tags whose file path contains this")
	f.IntVar(&limit, "max", 0, "maximum number of results")
	return cmd
}

func dropGlobal(ts []*model.Tag) []*model.Tag {
	out := ts[:0:0]
	for _, t := range ts {
		if !t.IsGlobal() {
			out = append(out, t)
		}
	}
	return out
}

func knownNames(ws *workspace.Workspace) []string {
	var names []string
	for _, arr := range []*tags.Array{ws.Tags(), ws.GlobalTags()} {
		names = append(names, ranking.Completions(arr.Tags, 0)...)
	}
	return names
}

func (a *app) completeCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "complete PREFIX",
		Short: "List distinct tag names starting with PREFIX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			found := ws.Find(args[0], model.TypeAny, []tags.Attr{tags.AttrName}, true, model.LangAny)
			_, _ = fmt.Fprintln(a.stdout, toon.EncodeList("completions", "name", ranking.Completions(found, limit)))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "max", 50, "maximum number of names (0 for all)")
	return cmd
}

func (a *app) parentsCmd() *cobra.Command {
	var dot, derived bool
	cmd := &cobra.Command{
		Use:   "parents CLASS",
		Short: "List a class and all of its ancestors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			if derived {
				return a.printDerived(ws, args[0])
			}
			chain := ws.Parents(args[0])
			if !dot {
				_, _ = fmt.Fprintln(a.stdout, toon.EncodeTags(chain, a.root))
				return nil
			}
			h, err := graph.New(chain)
			if err != nil {
				return err
			}
			return h.WriteDOT(a.stdout)
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "print the hierarchy as a Graphviz digraph")
	cmd.Flags().BoolVar(&derived, "derived", false, "list the classes deriving directly from CLASS instead")
	cmd.MarkFlagsMutuallyExclusive("dot", "derived")
	return cmd
}

// printDerived lists the direct subclasses of name across the workspace and
// global tags.
func (a *app) printDerived(ws *workspace.Workspace, name string) error {
	classes := ws.Tags().Extract(model.ClassTypes).Tags
	classes = append(classes, ws.GlobalTags().Extract(model.ClassTypes).Tags...)
	h, err := graph.New(classes)
	if err != nil {
		return err
	}
	if !slices.Contains(h.Classes(), name) {
		return fmt.Errorf("unknown class %q", name)
	}
	_, _ = fmt.Fprintln(a.stdout, toon.EncodeList("derived", "name", h.Derived(name)))
	return nil
}

func (a *app) functionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "function FILE LINE",
		Short: "Show the function or method enclosing a line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := strconv.Atoi(args[1])
			if err != nil || line < 1 {
				return fmt.Errorf("invalid line %q", args[1])
			}
			ws, err := a.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			f := ws.FindFile(args[0], false)
			if f == nil {
				// Outside the project: parse it on its own.
				if f, err = workspace.NewSourceFile(args[0], model.LangAny, parse.New()); err != nil {
					return err
				}
				defer f.Free()
			}

			var found []*model.Tag
			if t := workspace.CurrentFunction(f.Tags(), line); t != nil {
				found = append(found, t)
			}
			_, _ = fmt.Fprintln(a.stdout, toon.EncodeTags(found, a.root))
			return nil
		},
	}
}

func (a *app) buildGlobalsCmd() *cobra.Command {
	var (
		preprocessor string
		langName     string
	)
	cmd := &cobra.Command{
		Use:   "build-globals OUTPUT SPEC...",
		Short: "Build a global tag file from header files",
		Long: `Build a global tag file from header files.

Each SPEC is a file path. When the first SPEC starts with a double quote, every
SPEC is a quoted glob pattern instead, e.g. '"/usr/include/glib-2.0/**/*.h"'.
Files reachable through several paths are read once.

With a preprocessor the headers are included from a temporary file that is
run through the command; {} in the command marks the input file and the file
is appended when {} is absent.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if cmd.Flags().Changed("preprocessor") {
				a.cfg.Builder.Preprocessor = preprocessor
			}
			if !cmd.Flags().Changed("lang") {
				langName = a.cfg.Builder.Language
			}
			l, err := model.ParseLanguage(langName)
			if err != nil {
				return err
			}
			if l == model.LangAny {
				return fmt.Errorf("build-globals needs a concrete language")
			}

			err = globaltags.Build(cmd.Context(), globaltags.Options{
				Preprocessor: a.cfg.PreprocessorArgv(),
				Includes:     args[1:],
				Language:     l,
				Output:       args[0],
				Logger:       a.log,
			})
			if err != nil {
				return fmt.Errorf("building %s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(a.stderr, "wrote global tags to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&preprocessor, "preprocessor", "", "preprocessor command, e.g. \"gcc -E -dD {}\"")
	cmd.Flags().StringVar(&langName, "lang", "", "language of the headers (default from config)")
	return cmd
}

func versionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(stdout, "tagindex %s\n", version)
		},
	}
}
