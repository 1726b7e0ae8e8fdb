// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package batch

import (
	"fmt"

	"github.com/a-h/templ"
)

//go:generate go tool templ generate -f report.templ

// HTML returns a component rendering the report as a standalone HTML page.
func (r *Report) HTML() templ.Component { return reportPage(r) }

func (r *Report) title() string { return fmt.Sprintf("copyright %s: %s", r.Op, r.Root) }

// class returns the CSS class of the table row for e.
func (e Entry) class() string {
	switch {
	case e.Err != nil:
		return "error"
	case e.After != Present:
		return "absent"
	default:
		return "present"
	}
}

func (e Entry) icon() string {
	switch {
	case e.Err != nil:
		return IconError
	case e.After != Present:
		return IconMissing
	default:
		return IconOK
	}
}

func (e Entry) status() string {
	if e.Err != nil {
		return "error: " + e.Err.Error()
	}
	return e.After.String()
}

func (e Entry) result(op Op) string {
	if op == OpStatus || e.Err != nil {
		return ""
	}
	return e.Result.String()
}
