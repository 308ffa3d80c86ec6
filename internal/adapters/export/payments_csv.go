// Package export renders ledger data in the formats the front desk hands to
// accounting.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gymcore/pkg/domain"
)

// PaymentsCSVHeader is the fixed header of the payments export.
const PaymentsCSVHeader = "Fecha,Socio,Monto,Metodo"

const unknownMemberName = "Desconocido"

// WritePaymentsCSV writes the full payment ledger as CSV, newest first. The
// member name column is always quoted; payments whose member record is gone
// fall back to a placeholder name.
func WritePaymentsCSV(w io.Writer, store domain.PersistentStore) error {
	payments := store.ListPayments()
	sort.Slice(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if _, err := fmt.Fprintln(w, PaymentsCSVHeader); err != nil {
		return err
	}
	for _, p := range payments {
		name := unknownMemberName
		if member, ok := store.GetMember(p.MemberID); ok {
			name = member.DisplayName()
		}
		if _, err := fmt.Fprintf(w, "%s,%s,%.2f,%s\n", p.Date, quote(name), p.Amount, p.Method); err != nil {
			return err
		}
	}
	return nil
}

// quote always wraps the field in double quotes, doubling embedded quotes.
func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
