// Command pdftext extracts the text of a PDF file page by page and writes it
// to stdout.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: pdftext FILE.pdf")
		os.Exit(2)
	}

	text, err := extract(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(text)
}

func extract(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = doc.Close() }()

	var sb strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page+1, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
