// Package detection finds numbered callout bubbles on a rendered drawing
// page.
//
// Detection runs in three stages, each a pure function of the page and the
// configuration:
//
//  1. Candidate Generation: gradient Hough passes and contour analysis over
//     the blue ink mask, repeated on the grayscale image as a backup for
//     faded ink. New candidates are dropped when their center lies near one
//     already proposed.
//  2. Verification: every candidate runs an ordered list of gates. The
//     first failing gate rejects it and records why.
//  3. Deduplication: survivors are ranked by score and each suppresses the
//     lower-scored bubbles around it, then the result is put in reading
//     order.
//
// # Gates
//
//   - Perimeter ratio: the share of ink on rings of every radius in the
//     scan range. The best ring sets the verified radius, which replaces
//     the candidate's nominal one.
//   - Interior brightness: the inner disk must be light (rejects holes).
//   - Interior dark ratio: some printed digit, but not a solid fill.
//   - Continuous arc: a long unbroken run of ink around the rim (rejects
//     dimension arcs and partial curves).
//   - Pointer: ink just outside the rim concentrated in a few adjacent
//     sectors, as left by the triangular leader pointer.
//
// # Coordinate System
//
// All coordinates are page pixels with the origin at the top-left corner,
// X increasing rightward and Y increasing downward. Angles are measured
// clockwise from +X for the same reason.
//
// # Limitations
//
// The radius limits, deduplication distances and gate thresholds are tuned
// for blue callouts on drawings rendered at 300 DPI and do not scale with
// resolution.
package detection
