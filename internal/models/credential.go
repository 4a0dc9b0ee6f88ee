package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CredentialVersion is the current schema tag embedded in every payload.
// Bump when the payload shape changes so old scanners can reject gracefully.
const CredentialVersion = 1

// CredentialPayload is the signed portion of a QR credential: a snapshot of
// the subject's profile at generation time plus anti-replay fields.
type CredentialPayload struct {
	SubjectID   string `bson:"subjectId" json:"subjectId"`
	DisplayName string `bson:"displayName" json:"displayName"`
	Address     string `bson:"address,omitempty" json:"address,omitempty"`
	Age         int    `bson:"age,omitempty" json:"age,omitempty"`
	Mobile      string `bson:"mobile,omitempty" json:"mobile,omitempty"`
	IssuedAt    int64  `bson:"issuedAt" json:"issuedAt"` // unix milliseconds
	Nonce       string `bson:"nonce" json:"nonce"`
	Version     int    `bson:"version" json:"version"`
}

// Credential is the full scannable document: payload, keyed-hash signature
// over the serialized payload, and the generation timestamp. The JSON shape
// of this struct is the wire format encoded into the QR image.
type Credential struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SubjectID   string             `bson:"subjectId" json:"-"`
	Payload     CredentialPayload  `bson:"payload" json:"payload"`
	Signature   string             `bson:"signature" json:"signature"`
	GeneratedAt time.Time          `bson:"generatedAt" json:"generatedAt"`
}

// ValidationResult is the single structure every credential validation
// returns. Callers never branch on errors vs false: malformed input, bad
// signatures and expiry all land here with a displayable reason.
type ValidationResult struct {
	Valid   bool               `json:"valid"`
	Payload *CredentialPayload `json:"payload,omitempty"`
	Reason  string             `json:"reason,omitempty"`
	// Legacy marks codes that carried only a bare subject identifier
	// (pre-signature app versions). Callers should prompt a re-issue.
	Legacy bool `json:"legacy,omitempty"`
}
