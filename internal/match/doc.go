// Package match implements the compatibility scoring and ranking
// pipeline: ten dimension scorers, an adaptive weight controller,
// the ranking engine, and explanation synthesis.
//
// Basic Usage:
//
//	// Load calibrated base weights (typically at startup)
//	base, err := match.LoadCalibration("configs/weights.calibration.json")
//	if err != nil {
//		log.Warn("using default weights", "error", err)
//	}
//
//	svc := match.NewService(match.ServiceConfig{BaseWeights: base},
//		profiles, feedbackStore, blocklistStore, matches)
//
//	// One synchronous run for the authenticated subject
//	summary, err := svc.Run(ctx, subjectID)
//
// Scoring:
//
// Every dimension scorer is a pure function of the (subject, candidate)
// profile pair returning a value in [0, 1]. Missing attributes exclude
// factors rather than erroring, so a sparse profile scores low, never
// fails. The weighted total is scaled to an integer 0-100.
//
// Weight adaptation:
//
// Each run derives a fresh weight vector from the calibrated base and
// the subject's recent feedback. Adaptation is bounded: per-dimension
// clamps plus sqrt-damping on the feedback count, and the vector is
// renormalized to sum to 1. Nothing adapted is persisted across runs.
//
// Persistence:
//
// Ranked results are handed to a matchstore.Store whose Upsert keeps at
// most one record per (subject, target) pair, which makes re-running
// the pipeline safe at any time.
package match
