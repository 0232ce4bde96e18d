// Package validation provides common validation utilities for the voxflow library.
package validation
