package roundup

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/bobmcallan/roundup/internal/models"
)

// statementLine matches "2025-01-31  Coffee shop  -4.35" with an optional currency sign.
var statementLine = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(.+?)\s+(-?)\$?(\d+(?:,\d{3})*(?:\.\d{1,2})?)$`)

// errNoLine marks a statement line that is not a transaction.
var errNoLine = errors.New("not a transaction line")

// maxStatementChars bounds extracted text.
const maxStatementChars = 500000

// ExtractStatementLines returns the non-empty text lines of a statement.
// PDFs are detected by content type or the %PDF magic bytes.
func ExtractStatementLines(data []byte, contentType string) ([]string, error) {
	if len(data) == 0 {
		return nil, models.NewValidationError("statement", "is empty")
	}

	text := string(data)
	if strings.Contains(contentType, "pdf") || bytes.HasPrefix(data, []byte("%PDF")) {
		extracted, err := extractPDFText(data)
		if err != nil {
			return nil, models.NewValidationError("statement", err.Error())
		}
		text = extracted
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}
	return lines, nil
}

// extractPDFText extracts the plain text of every page.
func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		if sb.Len() > maxStatementChars {
			break
		}
	}
	return sb.String(), nil
}

// ParseStatementLine converts one statement line into an ingestion payload.
func ParseStatementLine(line string) (models.NewTransaction, error) {
	m := statementLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return models.NewTransaction{}, errNoLine
	}
	date, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return models.NewTransaction{}, errNoLine
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[4], ",", ""), 64)
	if err != nil {
		return models.NewTransaction{}, errNoLine
	}
	if m[3] == "-" {
		amount = -amount
	}
	return models.NewTransaction{
		Amount:      amount,
		Description: strings.TrimSpace(m[2]),
		Date:        date,
	}, nil
}
