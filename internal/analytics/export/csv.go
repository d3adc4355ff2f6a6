package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/maison-parfum/maison/internal/analytics"
)

// WriteDashboardCSV writes every dashboard section, separated by blank lines.
func WriteDashboardCSV(w io.Writer, dash analytics.Dashboard) error {
	sections := []func(io.Writer, analytics.Dashboard) error{
		WriteSummaryCSV,
		WriteRevenueSeriesCSV,
		WriteCategoryCSV,
		WriteLowStockCSV,
	}
	for i, section := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := section(w, dash); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummaryCSV serialises the headline metrics.
func WriteSummaryCSV(w io.Writer, dash analytics.Dashboard) error {
	return writeRecords(w, []string{"Metric", "Value"}, [][]string{
		{"Range", string(dash.Range)},
		{"Window Start", dash.Current.Start.Format("2006-01-02T15:04:05Z07:00")},
		{"Window End", dash.Current.End.Format("2006-01-02T15:04:05Z07:00")},
		{"Revenue", plain(dash.Revenue)},
		{"Revenue Trend %", ratio(dash.RevenueTrend)},
		{"Profit", plain(dash.Profit)},
		{"Profit Trend %", ratio(dash.ProfitTrend)},
		{"Total Orders", strconv.Itoa(dash.TotalOrders)},
		{"Successful Orders", strconv.Itoa(dash.SuccessOrdersCount)},
		{"Success Trend %", ratio(dash.SuccessTrend)},
		{"Average Order Value", plain(dash.AOV)},
		{"New Customers", strconv.Itoa(dash.NewCustomers)},
		{"First-time Buyers", strconv.Itoa(dash.FirstTimeBuyers)},
		{"Returning Customers", strconv.Itoa(dash.ReturningCustomers)},
		{"Active Buyers", strconv.Itoa(dash.ActiveBuyersCount)},
		{"Returning Rate %", ratio(dash.ReturningRate)},
		{"Lost Revenue", plain(dash.LostRevenue)},
		{"Conversion Rate %", ratio(dash.ConversionRate)},
		{"Abandoned Cart Value", plain(dash.AbandonedVal)},
		{"Abandoned Cart Users", strconv.Itoa(dash.UniqueAbandonedCount)},
	})
}

// WriteRevenueSeriesCSV emits revenue per time bucket.
func WriteRevenueSeriesCSV(w io.Writer, dash analytics.Dashboard) error {
	rows := make([][]string, 0, len(dash.ChartData.Labels))
	for i, label := range dash.ChartData.Labels {
		value := "0.00"
		if i < len(dash.ChartData.Revenue) {
			value = plain(dash.ChartData.Revenue[i])
		}
		rows = append(rows, []string{label, value})
	}
	return writeRecords(w, []string{"Bucket", "Revenue"}, rows)
}

// WriteCategoryCSV emits unit volume per category.
func WriteCategoryCSV(w io.Writer, dash analytics.Dashboard) error {
	rows := make([][]string, 0, len(dash.CategoryData.Labels))
	for i, label := range dash.CategoryData.Labels {
		units := 0
		if i < len(dash.CategoryData.Data) {
			units = dash.CategoryData.Data[i]
		}
		rows = append(rows, []string{textCell(label), strconv.Itoa(units)})
	}
	return writeRecords(w, []string{"Category", "Units"}, rows)
}

// WriteLowStockCSV lists variants below the stock threshold.
func WriteLowStockCSV(w io.Writer, dash analytics.Dashboard) error {
	rows := make([][]string, 0, len(dash.LowStockVariants))
	for _, v := range dash.LowStockVariants {
		rows = append(rows, []string{textCell(v.ProductName), textCell(v.Name), textCell(v.ID), strconv.Itoa(int(v.Stock))})
	}
	return writeRecords(w, []string{"Product", "Variant", "Variant ID", "Stock"}, rows)
}

// textCell keeps spreadsheets from evaluating catalog text as a formula.
func textCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}

func writeRecords(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
