// Package corpus works with finished corpus files: it converts third-party
// archive exports into the same author,text line format the harvester
// writes, and reports per-author volume for balancing the training set.
package corpus
