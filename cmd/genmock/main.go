// Command genmock writes synthetic raw inputs for every catalog source, so
// `etl process` can run without downloading anything. The water workbook is
// written directly in its converted .xlsx form.
//
// Usage:
//
//	go run ./cmd/genmock -out data/raw
package main

import (
	"flag"
	"fmt"
	"log"
	"slices"

	"github.com/couchcryptid/rio-sonora-etl/internal/catalog"
	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/mock"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/raw", "directory to write the raw files into")
	family := flag.String("family", "", "only generate one family (water_quality or livestock)")
	flag.Parse()

	sources := catalog.Default()
	if *family != "" {
		f := domain.Family(*family)
		if !slices.Contains([]domain.Family{domain.FamilyWater, domain.FamilyLivestock}, f) {
			flag.Usage()
			return fmt.Errorf("unknown family %q", *family)
		}
		sources = sources.ByFamily(f)
	}

	paths, err := mock.Generate(*out, sources)
	for _, p := range paths {
		log.Printf("wrote %s", p)
	}
	if err != nil {
		return err
	}
	log.Printf("total: %d files", len(paths))
	return nil
}
