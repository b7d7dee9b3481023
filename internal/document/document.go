// Package document holds the goods-introduction payload accepted by the
// registration API. Field semantics are the API's business; the client
// only carries them.
package document

import "errors"

// ErrIncomplete is returned by Validate when identifying fields are missing.
var ErrIncomplete = errors.New("document: doc_id and doc_type are required")

// Document is the body of POST /lk/documents/create. Wire names follow
// the API; importRequest really is camelCase there.
type Document struct {
	Description    *Description `json:"description,omitempty"`
	DocID          string       `json:"doc_id"`
	DocStatus      string       `json:"doc_status,omitempty"`
	DocType        string       `json:"doc_type"`
	ImportRequest  bool         `json:"importRequest,omitempty"`
	OwnerInn       string       `json:"owner_inn,omitempty"`
	ParticipantInn string       `json:"participant_inn,omitempty"`
	ProducerInn    string       `json:"producer_inn,omitempty"`
	ProductionDate string       `json:"production_date,omitempty"`
	ProductionType string       `json:"production_type,omitempty"`
	Products       []Product    `json:"products,omitempty"`
	RegDate        string       `json:"reg_date,omitempty"`
	RegNumber      string       `json:"reg_number,omitempty"`
}

type Description struct {
	ParticipantInn string `json:"participantInn,omitempty"`
}

type Product struct {
	CertificateDocument     string `json:"certificate_document,omitempty"`
	CertificateDocumentDate string `json:"certificate_document_date,omitempty"`
	OwnerInn                string `json:"owner_inn,omitempty"`
	ProducerInn             string `json:"producer_inn,omitempty"`
	ProductionDate          string `json:"production_date,omitempty"`
	TnvedCode               string `json:"tnved_code,omitempty"`
	UidCode                 string `json:"uid_code,omitempty"`
	UituCode                string `json:"uitu_code,omitempty"`
	RegDate                 string `json:"reg_date,omitempty"`
	RegNumber               string `json:"reg_number,omitempty"`
}

// Validate checks the fields the client itself needs to address the
// document in logs and outcomes. Everything else is opaque.
func (d *Document) Validate() error {
	if d.DocID == "" || d.DocType == "" {
		return ErrIncomplete
	}
	return nil
}
