package usecase

import (
	crerr "github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")

	ErrUpstreamFetch   = crerr.New("upstream fetch failed")
	ErrNoMatchupsFound = crerr.New("no matchups found")
	ErrGridAccess      = crerr.New("grid access failed")
	ErrExport          = crerr.New("export failed")
	ErrReconciliation  = crerr.New("reconciliation failed")

	ErrMissingCredentials = crerr.New("missing credentials")
	ErrSheetNotFound      = crerr.New("sheet not found")
	ErrPPRFetch           = crerr.New("ppr fetch failed")
	ErrPPRSnapshot        = crerr.New("ppr snapshot failed")
	ErrResponse           = crerr.New("response failed")
)

var categories = []struct {
	err     error
	summary string
}{
	{ErrNoMatchupsFound, "Ingen kamper funnet for uka."},
	{ErrUpstreamFetch, "Klarte ikke hente kampdata fra ESPN."},
	{ErrDependencyUnavailable, "ESPN er midlertidig utilgjengelig, prøv igjen senere."},
	{ErrMissingCredentials, "Mangler Google-credentials."},
	{ErrSheetNotFound, "Fant ikke regnearket."},
	{ErrExport, "Eksport til Sheets feilet."},
	{ErrReconciliation, "Oppdatering av resultater feilet."},
	{ErrGridAccess, "Klarte ikke lese eller skrive Sheets."},
	{ErrPPRFetch, "Klarte ikke hente PPR."},
	{ErrPPRSnapshot, "Klarte ikke lagre PPR-snapshot."},
	{ErrInvalidInput, "Ugyldig input."},
	{ErrResponse, "Klarte ikke sende svar."},
}

// Category returns a short user-facing summary for a known failure, or
// ok=false for errors outside the bot's taxonomy.
func Category(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	for _, c := range categories {
		if crerr.Is(err, c.err) {
			return c.summary, true
		}
	}
	return "", false
}
