// Package textutil turns operator-supplied names into path-safe tokens.
package textutil
