// Command dumpscan reports article counts and raw sizes for a wiki XML
// content dump without converting anything. Useful for sizing a conversion
// run and picking --start/--end windows.
package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: dumpscan <dump-file> [start [end]]")
	}
	path := os.Args[1]

	start, end := 0, 0
	var err error
	if len(os.Args) > 2 {
		if start, err = strconv.Atoi(os.Args[2]); err != nil {
			log.Fatalf("Bad start index %q", os.Args[2])
		}
	}
	if len(os.Args) > 3 {
		if end, err = strconv.Atoi(os.Args[3]); err != nil {
			log.Fatalf("Bad end index %q", os.Args[3])
		}
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".bz2") {
		bz, err := bzip2.NewReader(f, &bzip2.ReaderConfig{})
		if err != nil {
			log.Fatal(err)
		}
		defer bz.Close()
		r = bz
	}

	if err := scan(r, start, end); err != nil {
		log.Fatal(err)
	}
}

type page struct {
	Title string `xml:"title"`
	Ns    int    `xml:"ns"`
	Text  string `xml:"revision>text"`
}

func scan(r io.Reader, start, end int) error {
	dec := xml.NewDecoder(r)
	count := 0
	kept := 0
	var totalBytes int64

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "page" {
			continue
		}
		var p page
		if err := dec.DecodeElement(&p, &se); err != nil {
			return err
		}
		if p.Ns != 0 {
			continue
		}
		if end > 0 && count >= end {
			break
		}
		if count >= start {
			kept++
			totalBytes += int64(len(p.Text))
		}
		count++
		if count%10000 == 0 {
			log.Printf("Scanned %d articles", count)
		}
	}

	fmt.Printf("Articles: %d\n", kept)
	fmt.Printf("Total markup bytes: %d\n", totalBytes)
	if kept > 0 {
		fmt.Printf("Average article bytes: %d\n", totalBytes/int64(kept))
	}
	return nil
}
