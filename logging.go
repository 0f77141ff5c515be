package workalloc

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/poolcoord/go-workalloc/pool"
	"go.uber.org/zap"
)

var log = logging.Logger("workalloc")

// loggingObserver logs engine events. Routine changes are logged at debug
// level; failures to record finished work are errors.
type loggingObserver struct{}

func (loggingObserver) Observe(e pool.Event) {
	switch e.Kind {
	case pool.EventLedgerFailed:
		log.Errorw("failed to record finished work", zap.String("peer", e.Peer), zap.Int("units", e.Units), zap.Error(e.Err))
	case pool.EventCompletionDiscarded:
		log.Warnw("discarded completion report from peer without assignment", "peer", e.Peer, "units", e.Units)
	case pool.EventPeerLeft:
		if e.Units > 0 {
			log.Infow("peer left with unfinished work", "peer", e.Peer, "abandoned", e.Units)
			return
		}
		fallthrough
	default:
		log.Debugw(e.Kind.String(),
			"peer", e.Peer,
			"units", e.Units,
			"outstanding", e.Outstanding,
			"peers", e.Peers,
			"busy", e.BusyPeers,
			"totalPower", e.TotalPower,
			"totalWorkload", e.TotalWorkload)
	}
}
