package cli

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const rupee = "₹"

var printer = message.NewPrinter(language.English)

// money formats v with thousands separators and two decimals
func money(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// moneyCol right-aligns a rupee amount in a column of width digits
func moneyCol(v float64, width int) string {
	return rupee + fmt.Sprintf("%*s", width, money(v))
}

// reportDate renders t as DD-MON-YYYY
func reportDate(t time.Time) string {
	return strings.ToUpper(t.Format("02-Jan-2006"))
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
