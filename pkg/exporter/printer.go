package exporter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"mgit/pkg/core"
)

// PrintObject pretty-prints an encoded object: blobs as their content,
// commits as their text body, trees like `git ls-tree`.
func PrintObject(data []byte, w io.Writer) error {
	typ, payload, err := core.SplitEnvelope(data)
	if err != nil {
		return err
	}

	switch typ {
	case core.TypeBlob, core.TypeCommit:
		_, err := w.Write(payload)
		return err
	case core.TypeTree:
		return printTree(data, w)
	default:
		return fmt.Errorf("unknown object type: %s", typ)
	}
}

func printTree(data []byte, w io.Writer) error {
	t, err := core.DecodeTree(data)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, entry := range t.Entries() {
		mode := entry.Mode
		if entry.Kind == core.KindTree {
			mode = "040000"
		}
		fmt.Fprintf(tw, "%s %s %s\t%s\n", mode, entry.Kind, entry.Hash, entry.Path)
	}
	return tw.Flush()
}

// FormatSize renders a byte count for humans.
func FormatSize(s int64) string {
	if s < 1024 {
		return fmt.Sprintf("%dB", s)
	} else if s < 1024*1024 {
		return fmt.Sprintf("%.1fKB", float64(s)/1024)
	}
	return fmt.Sprintf("%.2fMB", float64(s)/1024/1024)
}
