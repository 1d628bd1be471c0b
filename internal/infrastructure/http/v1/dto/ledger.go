package dto

import (
	"encoding/json"
	"time"

	"mise/internal/core/id"
	"mise/internal/core/types"
	"mise/internal/domain/ledger"
	"mise/internal/infrastructure/storage/postgres"
)

// --- Requests ---

// OpeningBalanceRequest posts an opening balance entry. Qty is in the entry
// UoM; unitCost, when given, is per entry UoM unit.
type OpeningBalanceRequest struct {
	LocationID string         `json:"locationId" binding:"required,uuid"`
	VariantID  string         `json:"variantId" binding:"required,uuid"`
	Qty        types.Quantity `json:"qty" binding:"required"`
	EntryUomID string         `json:"entryUomId" binding:"required,uuid"`
	UnitCost   *types.Money   `json:"unitCost"`
	Reference  string         `json:"reference"`
	Notes      string         `json:"notes"`
}

// ToInput converts the request into the service input.
func (r OpeningBalanceRequest) ToInput(userID *id.ID) (ledger.OpeningBalanceInput, error) {
	locationID, err := id.Parse(r.LocationID)
	if err != nil {
		return ledger.OpeningBalanceInput{}, err
	}
	variantID, err := id.Parse(r.VariantID)
	if err != nil {
		return ledger.OpeningBalanceInput{}, err
	}
	entryUomID, err := id.Parse(r.EntryUomID)
	if err != nil {
		return ledger.OpeningBalanceInput{}, err
	}
	return ledger.OpeningBalanceInput{
		LocationID: locationID,
		VariantID:  variantID,
		Qty:        r.Qty,
		EntryUomID: entryUomID,
		UnitCost:   r.UnitCost,
		UserID:     userID,
		Reference:  r.Reference,
		Notes:      r.Notes,
	}, nil
}

// StockOutRequest posts an outbound SALE or CONSUMPTION movement.
type StockOutRequest struct {
	LocationID       string         `json:"locationId" binding:"required,uuid"`
	VariantID        string         `json:"variantId" binding:"required,uuid"`
	Qty              types.Quantity `json:"qty" binding:"required"`
	TransactionUomID string         `json:"transactionUomId" binding:"required,uuid"`
	Reason           string         `json:"reason" binding:"required"`
	SalePrice        *types.Money   `json:"salePrice"`
	Reference        string         `json:"reference"`
	Notes            string         `json:"notes"`
}

// ToInput converts the request into the service input.
func (r StockOutRequest) ToInput(userID *id.ID) (ledger.StockOutInput, error) {
	locationID, err := id.Parse(r.LocationID)
	if err != nil {
		return ledger.StockOutInput{}, err
	}
	variantID, err := id.Parse(r.VariantID)
	if err != nil {
		return ledger.StockOutInput{}, err
	}
	txnUomID, err := id.Parse(r.TransactionUomID)
	if err != nil {
		return ledger.StockOutInput{}, err
	}
	return ledger.StockOutInput{
		LocationID:       locationID,
		VariantID:        variantID,
		Qty:              r.Qty,
		TransactionUomID: txnUomID,
		Reason:           ledger.Reason(r.Reason),
		SalePrice:        r.SalePrice,
		UserID:           userID,
		Reference:        r.Reference,
		Notes:            r.Notes,
	}, nil
}

// TransferRequest moves stock between two locations.
type TransferRequest struct {
	FromLocationID string         `json:"fromLocationId" binding:"required,uuid"`
	ToLocationID   string         `json:"toLocationId" binding:"required,uuid"`
	VariantID      string         `json:"variantId" binding:"required,uuid"`
	Qty            types.Quantity `json:"qty" binding:"required"`
	UomID          string         `json:"uomId" binding:"required,uuid"`
	Reference      string         `json:"reference"`
	Notes          string         `json:"notes"`
}

// ToInput converts the request into the service input.
func (r TransferRequest) ToInput(userID *id.ID) (ledger.TransferInput, error) {
	fromID, err := id.Parse(r.FromLocationID)
	if err != nil {
		return ledger.TransferInput{}, err
	}
	toID, err := id.Parse(r.ToLocationID)
	if err != nil {
		return ledger.TransferInput{}, err
	}
	variantID, err := id.Parse(r.VariantID)
	if err != nil {
		return ledger.TransferInput{}, err
	}
	uomID, err := id.Parse(r.UomID)
	if err != nil {
		return ledger.TransferInput{}, err
	}
	return ledger.TransferInput{
		FromLocationID: fromID,
		ToLocationID:   toID,
		VariantID:      variantID,
		Qty:            r.Qty,
		UomID:          uomID,
		UserID:         userID,
		Reference:      r.Reference,
		Notes:          r.Notes,
	}, nil
}

// AdjustmentRequest corrects a balance. Qty is signed.
type AdjustmentRequest struct {
	LocationID string         `json:"locationId" binding:"required,uuid"`
	VariantID  string         `json:"variantId" binding:"required,uuid"`
	Qty        types.Quantity `json:"qty" binding:"required"`
	UomID      string         `json:"uomId" binding:"required,uuid"`
	UnitCost   *types.Money   `json:"unitCost"`
	Reference  string         `json:"reference"`
	Notes      string         `json:"notes"`
}

// ToInput converts the request into the service input.
func (r AdjustmentRequest) ToInput(userID *id.ID) (ledger.AdjustmentInput, error) {
	locationID, err := id.Parse(r.LocationID)
	if err != nil {
		return ledger.AdjustmentInput{}, err
	}
	variantID, err := id.Parse(r.VariantID)
	if err != nil {
		return ledger.AdjustmentInput{}, err
	}
	uomID, err := id.Parse(r.UomID)
	if err != nil {
		return ledger.AdjustmentInput{}, err
	}
	return ledger.AdjustmentInput{
		LocationID: locationID,
		VariantID:  variantID,
		Qty:        r.Qty,
		UomID:      uomID,
		UnitCost:   r.UnitCost,
		UserID:     userID,
		Reference:  r.Reference,
		Notes:      r.Notes,
	}, nil
}

// --- Responses ---

// MovementLineResponse is one detail row of a movement.
type MovementLineResponse struct {
	ID               string  `json:"id"`
	LineNo           int32   `json:"lineNo"`
	UomID            string  `json:"uomId"`
	Qty              string  `json:"qty"`
	BaseQty          string  `json:"baseQty"`
	ConversionFactor string  `json:"conversionFactor"`
	UnitCost         *string `json:"unitCost,omitempty"`
	LineTotal        *string `json:"lineTotal,omitempty"`
	SalePrice        *string `json:"salePrice,omitempty"`
	SaleTotal        *string `json:"saleTotal,omitempty"`
	ProfitMargin     *string `json:"profitMargin,omitempty"`
	ProfitTotal      *string `json:"profitTotal,omitempty"`
}

// MovementResponse is a posted movement with its lines.
type MovementResponse struct {
	ID             string                 `json:"id"`
	Number         string                 `json:"number"`
	FromLocationID *string                `json:"fromLocationId,omitempty"`
	ToLocationID   *string                `json:"toLocationId,omitempty"`
	ItemVariantID  string                 `json:"itemVariantId"`
	Reason         string                 `json:"reason"`
	Status         string                 `json:"status"`
	Qty            string                 `json:"qty"`
	Meta           ledger.Meta            `json:"meta"`
	Related        *ledger.RelatedRef     `json:"related,omitempty"`
	Reference      string                 `json:"reference,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	CreatedBy      *string                `json:"createdBy,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	Lines          []MovementLineResponse `json:"lines"`
}

// JournalEntryResponse is one audit journal row for a movement. Payload is
// the movement exactly as it was posted.
type JournalEntryResponse struct {
	ID         string          `json:"id"`
	MovementID string          `json:"movementId"`
	Number     string          `json:"number"`
	Reason     string          `json:"reason"`
	UserID     string          `json:"userId,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// FromJournalEntry maps a journal row to its response.
func FromJournalEntry(e postgres.JournalEntry) JournalEntryResponse {
	return JournalEntryResponse{
		ID:         e.ID.String(),
		MovementID: e.MovementID.String(),
		Number:     e.Number,
		Reason:     e.Reason,
		UserID:     e.UserID,
		Payload:    e.Payload,
		CreatedAt:  e.CreatedAt,
	}
}

// TransferResponse returns both halves of a transfer.
type TransferResponse struct {
	Exit  MovementResponse `json:"exit"`
	Entry MovementResponse `json:"entry"`
}

func moneyString(m *types.Money) *string {
	if m == nil {
		return nil
	}
	s := m.String()
	return &s
}

func idString(i *id.ID) *string {
	if i == nil {
		return nil
	}
	s := i.String()
	return &s
}

// FromMovementLine maps a domain line to its response.
func FromMovementLine(l ledger.MovementLine) MovementLineResponse {
	return MovementLineResponse{
		ID:               l.ID.String(),
		LineNo:           l.LineNo,
		UomID:            l.UomID.String(),
		Qty:              l.Qty.String(),
		BaseQty:          l.BaseQty.String(),
		ConversionFactor: l.ConversionFactor.String(),
		UnitCost:         moneyString(l.UnitCost),
		LineTotal:        moneyString(l.LineTotal),
		SalePrice:        moneyString(l.SalePrice),
		SaleTotal:        moneyString(l.SaleTotal),
		ProfitMargin:     moneyString(l.ProfitMargin),
		ProfitTotal:      moneyString(l.ProfitTotal),
	}
}

// FromMovement maps a domain movement to its response.
func FromMovement(m *ledger.Movement) MovementResponse {
	lines := make([]MovementLineResponse, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = FromMovementLine(l)
	}
	return MovementResponse{
		ID:             m.ID.String(),
		Number:         m.Number,
		FromLocationID: idString(m.FromLocationID),
		ToLocationID:   idString(m.ToLocationID),
		ItemVariantID:  m.ItemVariantID.String(),
		Reason:         string(m.Reason),
		Status:         string(m.Status),
		Qty:            m.Qty.String(),
		Meta:           m.Meta,
		Related:        m.Related,
		Reference:      m.Reference,
		Notes:          m.Notes,
		CreatedBy:      idString(m.CreatedBy),
		CreatedAt:      m.CreatedAt,
		Lines:          lines,
	}
}
