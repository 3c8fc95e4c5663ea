package engine

import "github.com/shopspring/decimal"

// staleFraction is how far the candidate token's own mid may have drifted
// from its anchor before the book is considered to have already repriced.
var staleFraction = decimal.NewFromFloat(0.25)

// Anchors is the baseline a drift measurement is made against. Anchors are
// set at the end of cycles that absorbed no new information (no entry
// attempted) and stay put otherwise.
type Anchors struct {
	RefPrice decimal.Decimal
	UpMid    decimal.Decimal
	DownMid  decimal.Decimal
	Set      bool
}

// Signal is an entry signal produced by the lag detector
type Signal struct {
	Side      Side
	RefReturn decimal.Decimal // reference return since anchor
	BookDrift decimal.Decimal // (up mid - anchor) - (down mid - anchor), spread repricing proxy
	OwnDrift  decimal.Decimal // candidate token's own mid move since anchor
}

// DetectorInput carries one cycle's observations into DetectLag
type DetectorInput struct {
	RefPrice       decimal.Decimal
	UpMid          decimal.Decimal
	DownMid        decimal.Decimal
	Anchors        Anchors
	DriftThreshold decimal.Decimal
}

// DetectLag compares the reference price's return since its anchor against
// the market's own drift and reports whether the book looks stale.
//
// The first cycle is a warm-up: with no anchors there is no baseline and no
// signal. A zero anchor price is treated the same way.
func DetectLag(in DetectorInput) (Signal, bool) {
	if !in.Anchors.Set || in.Anchors.RefPrice.IsZero() {
		return Signal{}, false
	}

	refReturn := in.RefPrice.Div(in.Anchors.RefPrice).Sub(decimal.NewFromInt(1))
	if refReturn.Abs().LessThan(in.DriftThreshold) {
		return Signal{}, false
	}

	bookDrift := in.UpMid.Sub(in.Anchors.UpMid).Sub(in.DownMid.Sub(in.Anchors.DownMid))

	// Reference moved: the same-direction token should be about to reprice.
	side := SideUp
	ownDrift := in.UpMid.Sub(in.Anchors.UpMid).Abs()
	if refReturn.IsNegative() {
		side = SideDown
		ownDrift = in.DownMid.Sub(in.Anchors.DownMid).Abs()
	}

	// If the candidate's own book already moved, we are late. Stand down.
	if ownDrift.GreaterThanOrEqual(in.DriftThreshold.Mul(staleFraction)) {
		return Signal{}, false
	}

	return Signal{
		Side:      side,
		RefReturn: refReturn,
		BookDrift: bookDrift,
		OwnDrift:  ownDrift,
	}, true
}
