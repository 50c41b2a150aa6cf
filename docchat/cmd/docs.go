package main

import (
	"fmt"

	"docchat/docchat/controllers"
	"docchat/docchat/utils/color"

	"github.com/spf13/cobra"
)

func (c *cli) newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List documents of the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := c.app.Documents.Refresh(cmd.Context()); err != nil {
				return err
			}
			c.printDocs()
			return nil
		},
	}
}

func (c *cli) printDocs() {
	docs := c.app.Documents.Documents()
	if len(docs) == 0 {
		c.printf("%s\n", color.ColorWarning("No documents uploaded yet."))
		return
	}
	for _, d := range docs {
		c.printf("%-26s %-40s %8s  %s\n", d.DocID, d.Metadata.FileName, humanSize(d.Metadata.FileSize), d.UploadedAt)
	}
}

func (c *cli) newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload PDF or Word documents to the active session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			return c.upload(cmd, args)
		},
	}
}

func (c *cli) upload(cmd *cobra.Command, paths []string) error {
	files := make([]controllers.UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := controllers.LoadUploadFile(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}
	results, err := c.app.Documents.UploadBatch(cmd.Context(), files)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			c.printf("%s %s: %s\n", color.ColorError("failed"), r.File, r.Error())
			continue
		}
		c.printf("%s %s\n", color.ColorInfo("uploaded"), r.File)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func (c *cli) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <doc-id>",
		Short: "Remove a document from the active session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := c.app.Documents.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.printf("%s %s\n", color.ColorInfo("deleted"), args[0])
			return nil
		},
	}
}

func (c *cli) newDownloadCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <doc-id>",
		Short: "Save a document of the active session locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			path, err := c.app.Documents.Download(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			c.printf("%s %s\n", color.ColorInfo("saved"), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "target directory")
	return cmd
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
