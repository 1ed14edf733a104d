// Package frame provides the small tabular model that process references and batches work with.
//
// A Table is an ordered set of named columns sharing one row Index. A Series is a single column of
// values labelled by an Index. Missing values are represented by nil, which plays the role of NA when a
// Series is mapped onto keys it does not contain.
package frame
