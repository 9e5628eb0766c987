package balance

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"energypassport/internal/model"
	"energypassport/internal/parser"
)

// OCRClient recognizes text and tables in a scanned document
type OCRClient interface {
	Recognize(ctx context.Context, path string) (*model.OCRResult, error)
}

// Extractor pulls per-node figures out of balance acts
type Extractor struct {
	ocr OCRClient
}

// NewExtractor ocr may be nil, PDFs then yield nothing
func NewExtractor(ocr OCRClient) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract validated and deduplicated node records of one file. Failures are
// logged and produce an empty result.
func (e *Extractor) Extract(ctx context.Context, path string, raw *model.RawContent) (records []model.NodeRecord) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[balance] extraction of %s panicked: %v", filepath.Base(path), r)
			records = nil
		}
	}()

	if _, err := os.Stat(path); err != nil {
		log.Printf("[balance] failed to open %s: %v", path, err)
		return nil
	}
	dataType := DataTypeFromFilename(path)

	var extracted []model.NodeRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		wb, err := parser.LoadWorkbook(path)
		if err != nil {
			log.Printf("[balance] %v", err)
			return nil
		}
		extracted = parseWorkbook(wb, dataType, filepath.Base(path))
	case ".pdf":
		extracted = e.extractPDF(ctx, path, dataType)
	case ".docx", ".doc":
		if raw == nil {
			log.Printf("[balance] no parsed tables for %s", filepath.Base(path))
			return nil
		}
		for _, t := range raw.Tables {
			if IsNodeTable(t) {
				extracted = append(extracted, ParseNodeTable(t, dataType)...)
			}
		}
	default:
		log.Printf("[balance] unsupported file type: %s", filepath.Ext(path))
		return nil
	}
	return finish(extracted, path, dataType)
}

// ExtractWorkbook node records of an already loaded workbook
func ExtractWorkbook(wb model.Workbook, filename string) []model.NodeRecord {
	dataType := DataTypeFromFilename(filename)
	return finish(parseWorkbook(wb, dataType, filepath.Base(filename)), filename, dataType)
}

func (e *Extractor) extractPDF(ctx context.Context, path string, dataType model.DataType) []model.NodeRecord {
	if e.ocr == nil {
		log.Printf("[balance] OCR is not configured, skipping %s", filepath.Base(path))
		return nil
	}
	res, err := e.ocr.Recognize(ctx, path)
	if err != nil {
		log.Printf("[balance] failed to recognize %s: %v", filepath.Base(path), err)
		return nil
	}
	return parseOCRTables(res, path, dataType)
}

func finish(records []model.NodeRecord, path string, dataType model.DataType) []model.NodeRecord {
	out := Deduplicate(Validate(records, path), path)
	logStatistics(out, path, dataType)
	return out
}

// NewNodesArtifact payload of the nodes artifact
func NewNodesArtifact(records []model.NodeRecord) model.NodesArtifact {
	if records == nil {
		records = []model.NodeRecord{}
	}
	return model.NodesArtifact{Nodes: records, Summary: model.NodesSummary{TotalNodes: len(records)}}
}
