package invoicing

// InvoiceTotals are the invoice-level sums in minor units
type InvoiceTotals struct {
	AmountWoVat int64
	VatAmount   int64
	Amount      int64
}

// Computation is the full result of computing an invoice
type Computation struct {
	Lines    []LineAmounts
	Totals   InvoiceTotals
	Warnings []*ComputationError
}

// SumLineAmounts totals per-line results.
// Every term is already an integer, so the sum is exact and independent of order.
func SumLineAmounts(lines []LineAmounts) InvoiceTotals {
	var totals InvoiceTotals
	for _, l := range lines {
		totals.AmountWoVat += l.NetLine
		totals.VatAmount += l.VatValue
	}
	totals.Amount = totals.AmountWoVat + totals.VatAmount
	return totals
}

// InvoiceAggregator sums converted rate lines into invoice totals
type InvoiceAggregator struct {
	converter *RateConverter
}

// NewInvoiceAggregator creates an aggregator over a converter
func NewInvoiceAggregator(converter *RateConverter) *InvoiceAggregator {
	return &InvoiceAggregator{converter: converter}
}

// Aggregate converts every line and sums the results.
// The first malformed line aborts the computation.
func (a *InvoiceAggregator) Aggregate(lines []RateLine, cc ConversionContext) (*Computation, error) {
	result := &Computation{Lines: make([]LineAmounts, 0, len(lines))}
	for i := range lines {
		conv, err := a.converter.Convert(&lines[i], cc)
		if err != nil {
			return nil, err
		}
		result.Lines = append(result.Lines, conv.Amounts)
		result.Warnings = append(result.Warnings, conv.Warnings...)
	}
	result.Totals = SumLineAmounts(result.Lines)
	return result, nil
}
