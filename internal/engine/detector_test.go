package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func anchorsAt(ref, upMid, downMid float64) Anchors {
	return Anchors{RefPrice: d(ref), UpMid: d(upMid), DownMid: d(downMid), Set: true}
}

func TestDetectLag_WarmUpNoAnchors(t *testing.T) {
	_, found := DetectLag(DetectorInput{
		RefPrice:       d(50000),
		UpMid:          d(0.50),
		DownMid:        d(0.50),
		Anchors:        Anchors{},
		DriftThreshold: d(0.0010),
	})
	assert.False(t, found)
}

func TestDetectLag_ZeroAnchorPrice(t *testing.T) {
	_, found := DetectLag(DetectorInput{
		RefPrice:       d(50000),
		UpMid:          d(0.50),
		DownMid:        d(0.50),
		Anchors:        Anchors{RefPrice: decimal.Zero, Set: true},
		DriftThreshold: d(0.0010),
	})
	assert.False(t, found)
}

func TestDetectLag_BelowThreshold(t *testing.T) {
	// +0.05% move against a 0.10% threshold
	_, found := DetectLag(DetectorInput{
		RefPrice:       d(50025),
		UpMid:          d(0.50),
		DownMid:        d(0.50),
		Anchors:        anchorsAt(50000, 0.50, 0.50),
		DriftThreshold: d(0.0010),
	})
	assert.False(t, found)
}

func TestDetectLag_UpSignal(t *testing.T) {
	// Reference +0.20%, both books still at their anchors
	sig, found := DetectLag(DetectorInput{
		RefPrice:       d(50100),
		UpMid:          d(0.50),
		DownMid:        d(0.50),
		Anchors:        anchorsAt(50000, 0.50, 0.50),
		DriftThreshold: d(0.0010),
	})
	assert.True(t, found)
	assert.Equal(t, SideUp, sig.Side)
	assert.True(t, sig.RefReturn.Equal(d(0.002)), "ref return = %s", sig.RefReturn)
	assert.True(t, sig.OwnDrift.IsZero())
}

func TestDetectLag_DownSignal(t *testing.T) {
	sig, found := DetectLag(DetectorInput{
		RefPrice:       d(49900),
		UpMid:          d(0.50),
		DownMid:        d(0.50),
		Anchors:        anchorsAt(50000, 0.50, 0.50),
		DriftThreshold: d(0.0010),
	})
	assert.True(t, found)
	assert.Equal(t, SideDown, sig.Side)
	assert.True(t, sig.RefReturn.IsNegative())
}

func TestDetectLag_CandidateAlreadyRepriced(t *testing.T) {
	// Reference +0.20% but the UP mid already moved a full threshold; the
	// stale window is a quarter of the threshold, so no signal.
	_, found := DetectLag(DetectorInput{
		RefPrice:       d(50100),
		UpMid:          d(0.501),
		DownMid:        d(0.50),
		Anchors:        anchorsAt(50000, 0.50, 0.50),
		DriftThreshold: d(0.0010),
	})
	assert.False(t, found)
}

func TestDetectLag_OtherSideMoveDoesNotBlock(t *testing.T) {
	// DOWN book repriced but the candidate is UP; staleness is judged on the
	// candidate's own mid only.
	sig, found := DetectLag(DetectorInput{
		RefPrice:       d(50100),
		UpMid:          d(0.50),
		DownMid:        d(0.495),
		Anchors:        anchorsAt(50000, 0.50, 0.50),
		DriftThreshold: d(0.0010),
	})
	assert.True(t, found)
	assert.Equal(t, SideUp, sig.Side)
	assert.True(t, sig.BookDrift.Equal(d(0.005)), "book drift = %s", sig.BookDrift)
}

func TestDetectLag_DriftJustInsideStaleWindow(t *testing.T) {
	// Own drift of 0.0002 against a window of 0.00025 still signals.
	sig, found := DetectLag(DetectorInput{
		RefPrice:       d(50100),
		UpMid:          d(0.5002),
		DownMid:        d(0.50),
		Anchors:        anchorsAt(50000, 0.50, 0.50),
		DriftThreshold: d(0.0010),
	})
	assert.True(t, found)
	assert.True(t, sig.OwnDrift.Equal(d(0.0002)))
}
