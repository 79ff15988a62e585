package batch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"log/slog"

	"github.com/goccy/go-json"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/common"
)

// Pair is one discovered invoice package and the documents resolved for
// it. A pair with a non-empty Reason is not processable yet; reasons are
// data for the summary, not errors.
type Pair struct {
	Package     string `json:"factura"`
	InvoicePath string `json:"invoice_pdf,omitempty"`
	AnnexPath   string `json:"annex_json,omitempty"`
	HistoryPath string `json:"history_pdf,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Processable reports whether every required document was found.
func (p *Pair) Processable() bool { return p.Reason == "" }

// Discover walks the FERO* package directories under root and resolves
// each one's invoice, annex and history. Packages stay in lexical order
// so runs are reproducible.
func Discover(root, historiesDir string, logger *slog.Logger) ([]Pair, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, common.NewAppError(common.CodeNotFound, "read batch input dir", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), constants.PackagePrefix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	pairs := make([]Pair, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, resolvePackage(filepath.Join(root, name), name, historiesDir))
	}

	ready := 0
	for i := range pairs {
		if pairs[i].Processable() {
			ready++
		}
	}
	logger.Info("batch.discover",
		"root", root,
		"packages", len(pairs),
		"processable", ready,
	)
	return pairs, nil
}

func resolvePackage(dir, name, historiesDir string) Pair {
	pair := Pair{Package: name}

	pair.InvoicePath = firstGlob(dir,
		constants.PackagePrefix+"*.pdf",
		"*.pdf",
		constants.InvoiceAltGlob,
	)
	if pair.InvoicePath == "" {
		pair.Reason = constants.ReasonInvoiceMissing
		return pair
	}

	pair.AnnexPath = firstGlob(dir, "*"+constants.AnnexSuffix)
	if pair.AnnexPath == "" {
		pair.Reason = constants.ReasonAnnexMissing
		return pair
	}

	docNumber, err := annexDocumentNumber(pair.AnnexPath)
	if err != nil {
		pair.Reason = constants.ReasonAnnexReadError
		return pair
	}

	pair.HistoryPath = findHistory(dir, historiesDir, docNumber)
	if pair.HistoryPath == "" {
		pair.Reason = constants.ReasonHistoryNotFound
	}
	return pair
}

// annexDocumentNumber peeks at the annex for the patient document number
// used to locate the history. Full normalization happens later in the
// pipeline; this read only needs the one field.
func annexDocumentNumber(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var doc struct {
		Usuarios []struct {
			NumDocumento json.RawMessage `json:"numDocumentoIdentificacion"`
		} `json:"usuarios"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return "", err
	}
	if len(doc.Usuarios) == 0 {
		return "", nil
	}
	return strings.Trim(string(doc.Usuarios[0].NumDocumento), `" `), nil
}

// findHistory prefers the HEV PDF shipped inside the package, falling
// back to a document-number match anywhere under the histories directory.
func findHistory(packageDir, historiesDir, docNumber string) string {
	if p := firstGlob(packageDir, constants.HistoryPrefix+"*.pdf"); p != "" {
		return p
	}
	if historiesDir == "" || docNumber == "" {
		return ""
	}

	var found string
	_ = filepath.WalkDir(historiesDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || found != "" || d.IsDir() {
			return nil
		}
		if constants.NormalizeExt(filepath.Ext(d.Name())) == "pdf" && strings.Contains(d.Name(), docNumber) {
			found = path
		}
		return nil
	})
	return found
}

func firstGlob(dir string, patterns ...string) string {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0]
	}
	return ""
}
