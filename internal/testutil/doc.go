// Package testutil holds test doubles shared by several packages.
package testutil
