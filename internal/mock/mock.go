// Package mock writes small synthetic raw inputs with the same shape as the
// CONAGUA workbook and the SIAP livestock closings, so the pipeline can run
// end to end without network access.
package mock

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/couchcryptid/rio-sonora-etl/internal/catalog"
	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
)

// Sheet names used in the synthetic workbook.
const (
	SitesSheet        = "Sitios"
	MeasurementsSheet = "Resultados"
	DictionarySheet   = "Parametros"
)

var pollutants = []string{
	"OD_mg/L", "DBO_TOT", "DQO_TOT", "COLI_FEC", "E_COLI",
	"N_TOT", "P_TOT", "TOX_D_48_UT", "TOX_FIS_SUP_15_UT",
}

var siteHeader = []any{
	"CLAVE SITIO", "ESTADO", "MUNICIPIO", "CUERPO DE AGUA",
	"TIPO CUERPO DE AGUA", "SUBTIPO CUERPO AGUA", "LATITUD", "LONGITUD",
}

// sites covers every filter branch: three study sites, one outside the
// municipality list, one coastal body and one in another state.
var sites = [][]any{
	{"OCSON0001", "SONORA", "URES", "RIO SONORA", "LÓTICO", "RIO", 29.427, -110.389},
	{"OCSON0002", "SONORA", "ARIZPE", "RIO SONORA", "LÓTICO", "RIO", 30.336, -110.166},
	{"OCSON0003", "SONORA", "BAVIÁCORA", "RIO SONORA", "LÓTICO", "RIO", 29.712, -110.161},
	{"OCSON0004", "SONORA", "HERMOSILLO", "PRESA ABELARDO L. RODRIGUEZ", "LÉNTICO", "PRESA", 29.07, -110.91},
	{"OCSON0005", "SONORA", "CANANEA", "ESTERO EL SOLDADO", "COSTERO (ESTERO)", "ESTERO", 31.01, -110.29},
	{"OCCHH0001", "CHIHUAHUA", "URES", "RIO CONCHOS", "LÓTICO", "RIO", 28.63, -106.07},
}

// readings holds the text cells of the measurements sheet keyed by
// (measurement row, pollutant index); every other cell is numeric.
var readings = map[[2]int]string{
	{0, 0}: "<0.5",
	{1, 3}: ">24196",
	{2, 4}: "n/a",
	{4, 7}: "S/M",
	{5, 1}: "<2",
}

// measurementSites lists the site of each measurement row. The last key has
// no site and drops out of the join.
var measurementSites = []string{
	"OCSON0001", "OCSON0001",
	"OCSON0002", "OCSON0002",
	"OCSON0003", "OCSON0003",
	"OCSON0004", "OCSON0005", "OCCHH0001",
	"OCSON9999",
}

// firstSampleDate is the Excel serial of the first sample (2023-01-02).
const firstSampleDate = 44928

var dictionary = [][]any{
	{"CLAVE PARÁMETRO", "PARÁMETRO", "UNIDAD"},
	{"OD_mg/L", "Oxígeno disuelto", "mg/L"},
	{"DBO_TOT", "Demanda bioquímica de oxígeno total", "mg/L"},
	{"DQO_TOT", "Demanda química de oxígeno total", "mg/L"},
	{"COLI_FEC", "Coliformes fecales", "NMP/100 mL"},
	{"E_COLI", "Escherichia coli", "NMP/100 mL"},
	{"N_TOT", "Nitrógeno total", "mg/L"},
	{"P_TOT", "Fósforo total", "mg/L"},
	{"TOX_D_48_UT", "Toxicidad aguda Daphnia magna 48h", "UT"},
	{"TOX_FIS_SUP_15_UT", "Toxicidad aguda Vibrio fischeri 15min", "UT"},
	{"SST_mg/L", "Sólidos suspendidos totales", "mg/L"},
	{"CONDUCT_mS/cm", "Conductividad", "mS/cm"},
}

// WriteWaterWorkbook writes the synthetic monitoring workbook as .xlsx.
func WriteWaterWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SitesSheet); err != nil {
		return err
	}
	if err := writeRows(f, SitesSheet, append([][]any{siteHeader}, sites...)); err != nil {
		return err
	}

	if _, err := f.NewSheet(MeasurementsSheet); err != nil {
		return err
	}
	if err := writeRows(f, MeasurementsSheet, measurements()); err != nil {
		return err
	}

	if _, err := f.NewSheet(DictionarySheet); err != nil {
		return err
	}
	if err := writeRows(f, DictionarySheet, dictionary); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func measurements() [][]any {
	header := []any{"CLAVE SITIO", "FECHA REALIZACION"}
	for _, p := range pollutants {
		header = append(header, p)
	}
	header = append(header, "SST_mg/L")

	rows := [][]any{header}
	for i, site := range measurementSites {
		row := []any{site, firstSampleDate + 30*i}
		for p := range pollutants {
			if s, ok := readings[[2]int{i, p}]; ok {
				row = append(row, s)
				continue
			}
			row = append(row, float64((i+1)*(p+2))/10)
		}
		row = append(row, float64(10+i))
		rows = append(rows, row)
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r+1, err)
		}
	}
	return nil
}

var livestockHeader = []string{
	"Anio", "Cveestado", "Nomestado", "Cveddr", "Nomddr", "Cvempio",
	"Nommunicipio", "Cveespecie", "Nomespecie", "Cveproducto",
	"Nomproducto", "Volumen", "Precio", "Valor", "Peso", "Asacrificado",
}

// livestockRows is one year's closing without the leading year column. Three
// rows pass the filters; "Baviácora" without its trailing space does not.
var livestockRows = [][]string{
	{"26", "Sonora", "139", "Ures", "70", "Ures", "1", "Bovino", "101", "Carne en canal", "1,234.5", "65.20", "80,489.40", "245", "5,039"},
	{"26", "Sonora", "139", "Ures", "9", "Baviácora ", "3", "Caprino", "102", "Leche", " 2,310 ", "8.50", "19,635", "0", "0"},
	{"26", "Sonora", "138", "Cananea", "55", "San Felipe de Jesús", "2", "Porcino", "101", "Carne en canal", "N/D", "48.10", "0", "90", "120"},
	{"26", "Sonora", "140", "Hermosillo", "30", "Hermosillo", "1", "Bovino", "101", "Carne en canal", "9,870", "64.00", "631,680", "250", "39,480"},
	{"26", "Sonora", "139", "Ures", "70", "Ures", "5", "Ave", "103", "Huevo para plato", "15.2", "31.00", "471.2", "0", "0"},
	{"26", "Sonora", "139", "Ures", "9", "Baviácora", "1", "Bovino", "101", "Carne en canal", "410", "65.00", "26,650", "240", "1,708"},
}

// WriteLivestockCSV writes one synthetic SIAP closing for year, encoded
// ISO-8859-1 like the published files.
func WriteLivestockCSV(path string, year int) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	enc := charmap.ISO8859_1.NewEncoder().Writer(out)
	w := csv.NewWriter(enc)
	if err := w.Write(livestockHeader); err != nil {
		return err
	}
	for _, row := range livestockRows {
		record := append([]string{strconv.Itoa(year)}, row...)
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

// Generate writes a synthetic file for every source into dir and returns the
// paths written. Workbooks are written under their converted name.
func Generate(dir string, sources catalog.Catalog) ([]string, error) {
	paths := make([]string, 0, len(sources))
	for _, src := range sources {
		path := filepath.Join(dir, src.LocalFile())
		var err error
		switch src.Family {
		case domain.FamilyWater:
			err = WriteWaterWorkbook(path)
		case domain.FamilyLivestock:
			err = WriteLivestockCSV(path, src.Year)
		default:
			err = fmt.Errorf("no generator for family %q", src.Family)
		}
		if err != nil {
			return paths, fmt.Errorf("generate %s: %w", src.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
