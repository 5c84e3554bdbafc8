package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/ironsweet/goferret/core/document"
	"github.com/ironsweet/goferret/core/index"
	"github.com/ironsweet/goferret/core/util"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newIndexCommand() *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:   "index <dir> [files...]",
		Short: "Add documents to an index",
		Long: `Adds one document per file, with the file path in "path" and its
text in "content". Without files, every line of stdin becomes a document
numbered in "id".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := openDirectory(args[0], true)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if create {
				conf.SetCreate(true)
			}
			iw, err := index.OpenIndexWriter(d, conf)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, iw.Close()) }()

			added := 0
			if len(args) == 1 {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					doc := document.NewDocument()
					doc.AddString("id", strconv.Itoa(iw.DocCount()))
					doc.AddString("content", scanner.Text())
					if err = iw.AddDocument(doc); err != nil {
						return err
					}
					added++
				}
				if err = scanner.Err(); err != nil {
					return err
				}
			}
			for _, path := range args[1:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				doc := document.NewDocument()
				doc.AddString("path", filepath.ToSlash(path))
				doc.AddString("content", string(data))
				if err = iw.AddDocument(doc); err != nil {
					return err
				}
				added++
			}
			log.Infof("added %v documents to %v", added, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "added %v documents, index now holds %v\n", added, iw.DocCount())
			return nil
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "Replace any existing index")
	return cmd
}

func newTermsCommand() *cobra.Command {
	var from string
	var limit int
	cmd := &cobra.Command{
		Use:   "terms <dir> <field>",
		Short: "List the terms of a field with their document frequency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ir, d, err := openReader(args[0])
			if err != nil {
				return err
			}
			defer func() { err = multierr.Combine(err, ir.Close(), d.Close()) }()
			num, err := fieldNum(ir, args[1])
			if err != nil {
				return err
			}
			te, err := ir.TermsFrom(num, from)
			if err != nil {
				return err
			}
			defer func() { err = util.CloseWhileHandlingError(err, te) }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			// TermsFrom leaves te on the first term, so print before advancing.
			for n, term := 0, te.Term(); term != "" && (limit <= 0 || n < limit); n, term = n+1, te.Term() {
				fmt.Fprintf(w, "%v\t%v\n", term, te.DocFreq())
				if _, err = te.Next(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Start at the first term not less than this")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many terms")
	return cmd
}

func newDocsCommand() *cobra.Command {
	var positions bool
	cmd := &cobra.Command{
		Use:   "docs <dir> <field> <term>",
		Short: "List the documents containing a term",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ir, d, err := openReader(args[0])
			if err != nil {
				return err
			}
			defer func() { err = multierr.Combine(err, ir.Close(), d.Close()) }()
			num, err := fieldNum(ir, args[1])
			if err != nil {
				return err
			}
			var tde index.TermDocEnum
			if positions {
				tde, err = ir.TermPositionsFor(num, args[2])
			} else {
				tde, err = ir.TermDocsFor(num, args[2])
			}
			if err != nil {
				return err
			}
			defer func() { err = util.CloseWhileHandlingError(err, tde) }()
			return printPostings(cmd.OutOrStdout(), tde, positions)
		},
	}
	cmd.Flags().BoolVar(&positions, "positions", false, "Also print the positions of each occurrence")
	return cmd
}

func printPostings(out io.Writer, tde index.TermDocEnum, positions bool) error {
	for {
		ok, err := tde.Next()
		if err != nil || !ok {
			return err
		}
		if !positions {
			fmt.Fprintf(out, "%v\t%v\n", tde.DocNum(), tde.Freq())
			continue
		}
		poss := make([]int, tde.Freq())
		for i := range poss {
			if poss[i], err = tde.NextPosition(); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "%v\t%v\t%v\n", tde.DocNum(), tde.Freq(), poss)
	}
}

func newShowCommand() *cobra.Command {
	var vectors bool
	cmd := &cobra.Command{
		Use:   "show <dir> <doc>",
		Short: "Print the stored fields of a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			docNum, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("bad document number %q", args[1])
			}
			ir, d, err := openReader(args[0])
			if err != nil {
				return err
			}
			defer func() { err = multierr.Combine(err, ir.Close(), d.Close()) }()
			doc, err := ir.GetDocument(docNum)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, doc)
			if !vectors {
				return nil
			}
			tvs, err := ir.TermVectors(docNum)
			if err != nil {
				return err
			}
			for _, tv := range tvs {
				fmt.Fprintf(out, "%v:\n", tv.Field)
				for _, t := range tv.Terms {
					fmt.Fprintf(out, "  %v\t%v\t%v\n", t.Text, t.Freq, t.Positions)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&vectors, "vectors", false, "Also print the term vectors")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dir> <field> <term>...",
		Short: "Delete every document containing any of the terms",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := openDirectory(args[0], false)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			iw, err := index.OpenIndexWriter(d, conf)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, iw.Close()) }()
			n, err := iw.DeleteTerms(args[1], args[2:]...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %v documents\n", n)
			return nil
		},
	}
}

func newOptimizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize <dir>",
		Short: "Merge the index down to a single segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := openDirectory(args[0], false)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			iw, err := index.OpenIndexWriter(d, conf)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, iw.Close()) }()
			before := iw.SegmentInfos().Size()
			if err = iw.Optimize(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v segments merged into %v\n", before, iw.SegmentInfos().Size())
			return nil
		},
	}
}

func newCheckCommand() *cobra.Command {
	var crossCheck, verbose bool
	var segments []string
	cmd := &cobra.Command{
		Use:   "check <dir>",
		Short: "Verify the integrity of an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := openDirectory(args[0], false)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			if index.IndexIsLocked(d) {
				log.Warning("index is locked by a writer, results may be stale")
			}
			var info io.Writer
			if verbose {
				info = cmd.OutOrStdout()
			}
			status, err := index.NewCheckIndex(d, crossCheck, info).CheckIndex(segments)
			if err != nil {
				return err
			}
			if !status.Clean {
				return fmt.Errorf("index %v is corrupt", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v: %v segments OK\n", status.SegmentsFileName, len(status.Segments))
			return nil
		},
	}
	cmd.Flags().BoolVar(&crossCheck, "cross-check-term-vectors", false, "Compare term vectors against postings")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Report every segment")
	cmd.Flags().StringSliceVar(&segments, "segment", nil, "Only check these segments")
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <dir>",
		Short: "Summarize the segments and fields of an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := openDirectory(args[0], false)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, d.Close()) }()
			sis, err := index.ReadSegmentInfos(d)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%v version=%v docs=%v\n", sis.SegmentsFileName(), sis.Version, sis.DocCount())
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "segment\tdocs\tdeletions\tcompound\tseparate norms")
			for _, si := range sis.Segments {
				fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
					si.Name, si.DocCount, si.HasDeletions(), si.UseCompoundFile, si.HasSeparateNorms())
			}
			if err = w.Flush(); err != nil {
				return err
			}
			fmt.Fprint(out, sis.Fis)
			return nil
		},
	}
}
