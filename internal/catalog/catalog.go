// Package catalog lists the public datasets the pipeline downloads and where
// each one lands on disk.
package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
)

const (
	waterURL     = "https://files.conagua.gob.mx/aguasnacionales/TODOS%20LOS%20MONITOREOS.xlsb"
	livestockURL = "http://infosiap.siap.gob.mx/gobmx/datosAbiertos/Estadist_Produc_Pecuaria/cierre_%d.csv"

	// FirstLivestockYear and LastLivestockYear bound the SIAP yearly closings.
	FirstLivestockYear = 2013
	LastLivestockYear  = 2023

	// WaterFile is the workbook name as downloaded.
	WaterFile = "water_quality_raw_data.xlsb"
)

const waterInfo = "The information includes data on lotic, lentic, coastal, and underground water bodies, covering " +
	"physicochemical and microbiological parameters according to the type of water body. These data are organized " +
	"in an Excel file with three spreadsheets.\n\n" +
	"First sheet: Contains details about the monitoring sites, such as key, name, aquifer, state, municipality, " +
	"type of water body, latitude, longitude, among others.\n\n" +
	"Second sheet: Presents the results of the monitoring, grouped by site, type of water body, date of completion, " +
	"and the physicochemical and microbiological parameters recorded.\n\n" +
	"Third sheet: Offers a dictionary that describes each parameter, indicating its key, name, and unit of measurement.\n\n" +
	"The data was obtained from the National Water Commission (CONAGUA) " +
	"(https://www.gob.mx/conagua/articulos/calidad-del-agua) dated August 6, 2024."

const livestockInfo = "The information includes data on livestock production in the state of Sonora, Mexico, covering " +
	"different species and products, as well as their volume and price. These data are organized in a CSV file " +
	"containing records from %d.\n\n" +
	"The dataset includes the following columns: Año, Clave_Estado, Nombre_Estado, Clave_Municipio, " +
	"Nombre_Municipio, Nombre_Especie, Clave_Producto, Nombre_Producto, Volumen, Precio y Valor Total. " +
	"Each record provides information on livestock production, including the type of product and its market value. " +
	"The data was obtained from the Mexican Agricultural Information System (SIAP) through the open data portal " +
	"(http://infosiap.siap.gob.mx/gobmx/datosAbiertos_p.php) dated August 6, 2024."

// Source is one downloadable dataset file.
type Source struct {
	Name   string
	URL    string
	File   string // name under the raw data directory
	Info   string // provenance text written next to the download
	Family domain.Family
	Year   int // livestock closing year; zero for the workbook
}

// LocalFile is the file the pipeline reads. Binary .xlsb workbooks are read
// after conversion to .xlsx.
func (s Source) LocalFile() string {
	if strings.EqualFold(filepath.Ext(s.File), ".xlsb") {
		return strings.TrimSuffix(s.File, filepath.Ext(s.File)) + ".xlsx"
	}
	return s.File
}

// Stem is File without its extension.
func (s Source) Stem() string {
	return strings.TrimSuffix(s.File, filepath.Ext(s.File))
}

// Catalog is an ordered list of sources.
type Catalog []Source

// Default returns the CONAGUA workbook and the SIAP livestock closings for
// every year from FirstLivestockYear to LastLivestockYear.
func Default() Catalog {
	c := Catalog{{
		Name:   "water_quality",
		URL:    waterURL,
		File:   WaterFile,
		Info:   waterInfo,
		Family: domain.FamilyWater,
	}}
	for year := FirstLivestockYear; year <= LastLivestockYear; year++ {
		c = append(c, Livestock(year))
	}
	return c
}

// Livestock returns the SIAP source for one year.
func Livestock(year int) Source {
	return Source{
		Name:   fmt.Sprintf("livestock_%d", year),
		URL:    fmt.Sprintf(livestockURL, year),
		File:   fmt.Sprintf("livestock_%d_raw_data.csv", year),
		Info:   fmt.Sprintf(livestockInfo, year),
		Family: domain.FamilyLivestock,
		Year:   year,
	}
}

// ByFamily returns the sources of one family in catalog order.
func (c Catalog) ByFamily(f domain.Family) Catalog {
	var out Catalog
	for _, s := range c {
		if s.Family == f {
			out = append(out, s)
		}
	}
	return out
}

// Lookup finds a source by name.
func (c Catalog) Lookup(name string) (Source, bool) {
	for _, s := range c {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}
