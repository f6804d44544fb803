package export

import (
	model "bidding-engine/internal/models"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// LedgerSheet is the worksheet holding one auction's bids
const LedgerSheet = "Bids"

var ledgerHeader = []interface{}{"Seq", "Bid ID", "Bidder", "Amount", "Kind", "Placed At (UTC)"}

// LedgerWorkbook renders bids as a workbook, one row per bid in the order given.
// The caller owns the returned file and must Close it.
func LedgerWorkbook(auction model.Auction, bids []model.Bid) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), LedgerSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}

	if err := f.SetSheetRow(LedgerSheet, "A1", &ledgerHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("export: write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(LedgerSheet, "A1", "F1", bold)
	}

	for i, b := range bids {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("export: cell for row %d: %w", i+2, err)
		}
		row := []interface{}{
			b.Seq,
			b.BidID,
			b.BidderID,
			b.Amount.InexactFloat64(),
			string(b.Kind),
			b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(LedgerSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("export: write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(LedgerSheet, "B", "C", 38)
	_ = f.SetColWidth(LedgerSheet, "F", "F", 22)

	props := &excelize.DocProperties{
		Title:   fmt.Sprintf("Bid ledger %s", auction.AuctionID),
		Subject: fmt.Sprintf("auction %s, status %s, price %s", auction.AuctionID, auction.Status, auction.Price().StringFixed(model.MoneyPlaces)),
		Creator: "bidding-engine",
	}
	if err := f.SetDocProps(props); err != nil {
		f.Close()
		return nil, fmt.Errorf("export: set properties: %w", err)
	}

	return f, nil
}

// FileName is the attachment name used when serving a ledger
func FileName(auctionID string) string {
	return fmt.Sprintf("bids-%s.xlsx", auctionID)
}
