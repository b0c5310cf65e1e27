package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	siteinfoPath  string
	filtersPath   string
	outputPath    string
	metadataPath  string
	licensePath   string
	copyrightPath string
	processes     int
	timeout       time.Duration
	chunkSize     int
	startIndex    int
	endIndex      int
	articleCount  int
	langLinks     string
	sequential    bool
	outputFormat  string
	wikiLang      string
	dictVersion   string
)

var rootCmd = &cobra.Command{
	Use:   "aard-convert <dump-file>",
	Short: "Convert a wiki content dump to Aard Dictionary articles",
	Long: `Converts the articles of a wiki XML content dump (optionally bzip2
compressed) into serialized dictionary articles, one JSON record per line.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		si, err := LoadSiteInfo(siteinfoPath)
		if err != nil {
			log.Fatalf("Failed to load site info: %v", err)
		}

		filters := NewFilters()
		if filtersPath != "" {
			filters, err = LoadFilters(filtersPath)
			if err != nil {
				log.Fatalf("Failed to load filters: %v", err)
			}
		}

		if outputFormat != FormatHTML && outputFormat != FormatMarkdown {
			log.Fatalf("Unknown output format %q", outputFormat)
		}

		log.Printf("Reading dump %s", args[0])
		source, err := OpenDump(args[0])
		if err != nil {
			log.Fatalf("Failed to read dump: %v", err)
		}
		log.Printf("Dump contains %d articles", source.Len())

		out, err := os.Create(outputPath)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer out.Close()
		consumer := NewJSONLConsumer(out)

		var links []string
		if langLinks != "" {
			links = strings.Split(langLinks, ",")
		}

		b := NewBatchProcessor(consumer, source, si, filters, BatchOptions{
			Processes:     processes,
			Timeout:       timeout,
			ChunkSize:     chunkSize,
			Start:         startIndex,
			End:           endIndex,
			ArticleCount:  articleCount,
			LangLinks:     links,
			Sequential:    sequential,
			Format:        outputFormat,
			Lang:          wikiLang,
			MetadataPath:  metadataPath,
			LicensePath:   licensePath,
			CopyrightPath: copyrightPath,
			Version:       dictVersion,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if err := b.Run(ctx); err != nil {
			log.Fatalf("Conversion failed: %v", err)
		}
		log.Printf("Done: %s", consumer.Stats())
	},
}

func init() {
	rootCmd.Flags().StringVar(&siteinfoPath, "siteinfo", "", "Path to the wiki site info JSON (required)")
	rootCmd.Flags().StringVar(&filtersPath, "filters", "", "Path to the YAML filter definitions")
	rootCmd.Flags().StringVar(&outputPath, "output", "articles.jsonl", "Output file")
	rootCmd.Flags().StringVar(&metadataPath, "metadata", "", "Path to a YAML file with extra metadata entries")
	rootCmd.Flags().StringVar(&licensePath, "license", "", "Path to the license text file")
	rootCmd.Flags().StringVar(&copyrightPath, "copyright", "", "Path to the copyright notice file")
	rootCmd.Flags().IntVar(&processes, "processes", 0, "Number of worker processes (default: number of CPUs)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up on an unresponsive worker pool after this long")
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", 32, "Number of articles dispatched to the pool at once")
	rootCmd.Flags().IntVar(&startIndex, "start", 0, "Skip this many articles before converting")
	rootCmd.Flags().IntVar(&endIndex, "end", 0, "Stop reading articles at this index")
	rootCmd.Flags().IntVar(&articleCount, "article-count", 0, "Stop after converting this many real articles")
	rootCmd.Flags().StringVar(&langLinks, "lang-links", "", "Comma-separated language codes to collect language links for")
	rootCmd.Flags().BoolVar(&sequential, "seq", false, "Convert sequentially without a worker pool")
	rootCmd.Flags().StringVar(&outputFormat, "format", FormatHTML, "Article body format: html or markdown")
	rootCmd.Flags().StringVar(&wikiLang, "wiki-lang", "", "Dictionary language recorded in the metadata (default: site language)")
	rootCmd.Flags().StringVar(&dictVersion, "dict-version", "", "Dictionary version recorded in the metadata")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
