// Package contentaddr derives stable document identities from raw file bytes.
package contentaddr

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// HandleLength is the number of document ID characters used as the index handle.
const HandleLength = 16

// Identify returns the sha256 hex digest of data and the document ID derived from it.
func Identify(data []byte) (contentHash, documentID string) {
	sum := sha256.Sum256(data)
	contentHash = hex.EncodeToString(sum[:])
	return contentHash, DocumentID(contentHash)
}

// DocumentID maps a content hash to a name-based UUID (v5, URL namespace)
// rendered as 32 hex characters.
func DocumentID(contentHash string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(contentHash))
	return strings.ReplaceAll(id.String(), "-", "")
}

// IndexHandle names the vector index namespace for a document.
func IndexHandle(documentID string) string {
	if len(documentID) <= HandleLength {
		return documentID
	}
	return documentID[:HandleLength]
}
