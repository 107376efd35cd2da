// Package anomaly owns detection over cleaned frames.
//
// Ownership boundary:
// - threshold, derivative, and z-score passes
// - per-field statistical windows and previous-frame state
// - anomaly severity grading
//
// Passes run independently and their findings are concatenated without
// deduplication; overlap is corroborating evidence. The detector never
// touches frame data, only metadata.
package anomaly
