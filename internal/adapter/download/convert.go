package download

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// OfficeConverter converts workbooks to .xlsx with a headless LibreOffice
// binary (soffice or libreoffice).
type OfficeConverter struct {
	Binary string
	logger *slog.Logger
}

// NewOfficeConverter creates a converter that runs binary.
func NewOfficeConverter(binary string, logger *slog.Logger) *OfficeConverter {
	return &OfficeConverter{Binary: binary, logger: logger}
}

// Convert writes dst from src. LibreOffice names its output after the input
// stem in the output directory; that file is renamed to dst if they differ.
func (c *OfficeConverter) Convert(ctx context.Context, src, dst string) error {
	outDir := filepath.Dir(dst)
	cmd := exec.CommandContext(ctx, c.Binary,
		"--headless", "--convert-to", "xlsx", "--outdir", outDir, src)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", c.Binary, err, strings.TrimSpace(out.String()))
	}
	c.logger.Debug("converter finished", "binary", c.Binary, "output", strings.TrimSpace(out.String()))

	produced := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+".xlsx")
	if produced != dst {
		if err := os.Rename(produced, dst); err != nil {
			return err
		}
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("%s produced no output: %w", c.Binary, err)
	}
	return nil
}
