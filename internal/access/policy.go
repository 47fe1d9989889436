// Package access decides whether a requester may see restricted rows.
package access

import (
	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/storage/models"
)

// ClaimGetIEA is the authorization claim required for licensed IEA data.
const ClaimGetIEA = "get_iea"

// IsAuthorized reports whether a query may be served to the requester.
// Pure function of its inputs.
//
// Data is free when it neither names the licensed IEA dataset nor reaches
// past the municipal-waste slice; anything else requires an authenticated
// requester holding the get_iea claim. Denial is an outcome, not an
// error, so callers can render an access message instead of a failure.
func IsAuthorized(requester models.Requester, fields map[string]string) bool {
	free := fields["dataset"] != query.IEADatasetName && fields["ieamw"] == "MW"
	if free {
		return true
	}
	return requester.Authenticated && requester.HasClaim(ClaimGetIEA)
}
