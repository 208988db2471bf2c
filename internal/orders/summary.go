package orders

import (
	"fmt"
	"strings"
)

// Summarize renders a count summary of the given items: a total line
// followed by one "<item>: <count>" line per distinct item. Groups are
// emitted in the order each item was first seen, so two summaries over
// the same sequence are identical. An empty input yields a total of
// zero and no detail lines.
func Summarize(items []string) string {
	counts := make(map[string]int, len(items))
	var order []string
	for _, item := range items {
		if counts[item] == 0 {
			order = append(order, item)
		}
		counts[item]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total %d items:", len(items))
	for _, item := range order {
		fmt.Fprintf(&b, "\n%s: %d", item, counts[item])
	}
	return b.String()
}

// SummarizeByUser renders each user's items on its own line, then the
// combined count summary over all items. User lines follow map
// iteration order, which is deliberately unspecified: cross-user order
// carries no meaning (see Service.AllOrders).
func SummarizeByUser(byUser map[string][]string) string {
	var b strings.Builder
	var all []string
	for username, items := range byUser {
		fmt.Fprintf(&b, "%s: %s\n", username, strings.Join(items, ", "))
		all = append(all, items...)
	}
	b.WriteString(Summarize(all))
	return b.String()
}
