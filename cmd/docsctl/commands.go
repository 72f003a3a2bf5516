package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/engine/events"
	"github.com/docsift/docsift/engine/search"
	"github.com/docsift/docsift/pkg/natsutil"
)

func newDocumentsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List documents indexed in the data store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			docs, err := a.catalog.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list documents: %w", err)
			}
			if asJSON {
				return printJSON(cmd, docs)
			}
			if len(docs) == 0 {
				fmt.Fprintln(out(cmd), "No documents indexed.")
				return nil
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\n", d.ID, d.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newObjectsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List PDFs stored in the bucket under docs/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			objs, err := a.objects.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list objects: %w", err)
			}
			if asJSON {
				return printJSON(cmd, objs)
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tLAST MODIFIED")
			for _, o := range objs {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", o.Name, o.Size, o.LastModified.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		pageSize  int32
		summaries int32
		snippets  int32
		noCite    bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed documents and print the AI summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			p := search.Params{Query: args[0]}
			if cmd.Flags().Changed("page-size") {
				p.PageSize = &pageSize
			}
			if cmd.Flags().Changed("summary-results") {
				p.SummaryResultCount = &summaries
			}
			if cmd.Flags().Changed("snippets") {
				p.MaxSnippetCount = &snippets
			}
			if noCite {
				cite := false
				p.IncludeCitations = &cite
			}

			res, err := a.search.Search(cmd.Context(), p.Resolve(a.search.Defaults()))
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().Int32VarP(&pageSize, "page-size", "n", 0, "number of results")
	cmd.Flags().Int32Var(&summaries, "summary-results", 0, "results used to write the summary")
	cmd.Flags().Int32Var(&snippets, "snippets", 0, "snippets per result")
	cmd.Flags().BoolVar(&noCite, "no-citations", false, "omit citations from the summary")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload [file.pdf...]",
		Short: "Upload local PDFs and start indexing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]domain.UploadedFile, 0, len(args))
			for _, path := range args {
				f, closeFn, err := openLocal(path)
				if err != nil {
					return err
				}
				defer closeFn()
				files = append(files, f)
			}
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			resp, err := a.ingest.Run(cmd.Context(), files)
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			return printJSON(cmd, resp)
		},
	}
}

// openLocal opens path and sniffs its content type from the first bytes.
func openLocal(path string) (domain.UploadedFile, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.UploadedFile{}, nil, err
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return domain.UploadedFile{}, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return domain.UploadedFile{}, nil, err
	}
	return domain.UploadedFile{
		Name:        filepath.Base(path),
		ContentType: http.DetectContentType(head[:n]),
		Body:        f,
		Size:        st.Size(),
	}, f.Close, nil
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [gs://bucket/object...]",
		Short: "Re-import stored objects into the data store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			ops := a.indexer.ImportMany(cmd.Context(), args)
			if err := printJSON(cmd, ops); err != nil {
				return err
			}
			for _, op := range ops {
				if op.OperationName == nil {
					return errors.New("one or more imports failed")
				}
			}
			return nil
		},
	}
}

func newEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow upload and import events published on NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.NATSURL == "" {
				return &domain.ConfigError{Op: "events", Missing: []string{"NATS_URL"}}
			}
			nc, err := events.Connect(a.cfg.NATSURL, a.logger)
			if err != nil {
				return fmt.Errorf("nats: %w", err)
			}
			defer nc.Close()

			sub, err := natsutil.Subscribe(nc, events.SubjectAll, func(_ context.Context, subject string, payload map[string]any) {
				line, _ := json.Marshal(payload)
				fmt.Fprintf(out(cmd), "%s %s\n", subject, line)
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(out(cmd), string(data))
	return nil
}
