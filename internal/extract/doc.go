// Package extract parses media filenames and player window titles into a
// candidate title and episode number.
//
// Parsing applies an ordered list of pattern rules. Title and episode are
// resolved independently, so a later rule may still contribute the episode
// after an earlier rule supplied the title. Results with no episode are
// discarded; downstream matching never sees partial extractions.
package extract
