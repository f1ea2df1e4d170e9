package engine

import (
	"bytes"
	"errors"

	"github.com/ledongthuc/pdf"
)

// pdfTextExtraction pulls the embedded text layer out of the document.
// Scanned documents have no text layer, which comes back as an error.
func pdfTextExtraction(fileName string) (*string, error) {
	var fullText string
	Logger.Debug("Extracting text", "fileName", fileName)
	pdfFile, result, err := pdf.Open(fileName)
	if err != nil {
		Logger.Error("Unable to open PDF", "fileName", fileName)
		return nil, err
	}
	defer pdfFile.Close()
	var buf bytes.Buffer
	reader, err := result.GetPlainText()
	if err != nil {
		Logger.Error("Unable to convert PDF to text", "fileName", fileName)
		return nil, err
	}
	buf.ReadFrom(reader)
	fullText = buf.String() //writing from the buffer to the string
	if fullText == "" {
		err = errors.New("PDF Text Result is empty")
		Logger.Info("PDF Text Result is empty", "fileName", fileName)
		return nil, err
	}
	Logger.Info("Text extracted from PDF", "fileName", fileName)
	return &fullText, nil
}
