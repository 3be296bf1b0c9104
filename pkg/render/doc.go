// Package render turns a manifest report's license findings into
// Graphviz output.
//
// The conflict graph is undirected: each stack-level conflict pair
// becomes an edge between two package nodes labeled with their
// licenses. Outlier packages appear as dashed standalone nodes so a
// reader sees both why the stack has no representative license and
// which packages sit outside its dominant pattern.
package render
