package enrichment

import (
	"fmt"
	"strings"

	apperrors "github.com/nishad/enaimport/internal/errors"
)

// Status is the INSDC lifecycle status of a sample.
type Status string

const (
	StatusDraft               Status = "draft"
	StatusPrivate             Status = "private"
	StatusCancelled           Status = "cancelled"
	StatusPublic              Status = "public"
	StatusSuppressed          Status = "suppressed"
	StatusKilled              Status = "killed"
	StatusTemporarySuppressed Status = "temporary_suppressed"
	StatusTemporaryKilled     Status = "temporary_killed"
)

var statusByID = map[int]Status{
	1: StatusDraft,
	2: StatusPrivate,
	3: StatusCancelled,
	4: StatusPublic,
	5: StatusSuppressed,
	6: StatusKilled,
	7: StatusTemporarySuppressed,
	8: StatusTemporaryKilled,
}

// StatusFromID maps an ERAPRO status code. Unknown codes are fatal for the
// sample since the code will not change between attempts.
func StatusFromID(id int) (Status, error) {
	if s, ok := statusByID[id]; ok {
		return s, nil
	}
	return "", apperrors.MarkFatal(apperrors.E(apperrors.Op("enrichment.StatusFromID"),
		apperrors.KindStatus, fmt.Errorf("unknown status id %d", id)))
}

// IsNCBI reports whether the accession was assigned by NCBI or DDBJ.
func IsNCBI(accession string) bool {
	for _, p := range []string{"SAMN", "SAMD", "SRS", "DRS"} {
		if strings.HasPrefix(accession, p) {
			return true
		}
	}
	return false
}
