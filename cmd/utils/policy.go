package utils

import "github.com/memeland/memeland-server/cmd/apperrors"

// Authorize allows a mutation only when the caller owns the resource.
// Voting is deliberately not routed through here: any authenticated user may
// vote on any target, including their own.
func Authorize(callerID, ownerID string) error {
	if callerID != ownerID {
		return apperrors.Forbidden("Forbidden! You do not have permissions to modify this resource")
	}
	return nil
}
