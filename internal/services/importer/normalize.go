package importer

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/kineticrick/folio/internal/models"
)

// Brokerage export dates are US-style; reference CSVs use the same.
const usDateLayout = "01/02/2006"

// schwabRow mirrors one line of a Schwab transactions export.
type schwabRow struct {
	Date     string `csv:"Date"`
	Action   string `csv:"Action"`
	Symbol   string `csv:"Symbol"`
	Quantity string `csv:"Quantity"`
	Price    string `csv:"Price"`
	Amount   string `csv:"Amount"`
}

// tdameritradeRow mirrors one line of a TD Ameritrade transactions export.
// The action is buried in free-text descriptions ("Bought 10 MSFT @ ...").
type tdameritradeRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Symbol      string `csv:"Symbol"`
	Quantity    string `csv:"Quantity"`
	Price       string `csv:"Price"`
	Amount      string `csv:"Amount"`
}

// wallmineRow mirrors one line of a wallmine portfolio export.
type wallmineRow struct {
	Date         string `csv:"Date"`
	Type         string `csv:"Type"`
	Symbol       string `csv:"Symbol"`
	Shares       string `csv:"Shares"`
	CostPerShare string `csv:"Cost Per Share"`
	TotalCost    string `csv:"Total Cost"`
	CurrentValue string `csv:"Current Value"`
}

type entityRow struct {
	Symbol      string `csv:"Symbol"`
	Name        string `csv:"Name"`
	AssetType   string `csv:"Asset Type"`
	Sector      string `csv:"Sector"`
	Geography   string `csv:"Geography"`
	AccountType string `csv:"Account Type"`
}

type splitRow struct {
	Symbol           string `csv:"Symbol"`
	RecordDate       string `csv:"Record Date"`
	DistributionDate string `csv:"Distribution Date"`
	Multiplier       string `csv:"Multiplier"`
}

type acquisitionRow struct {
	Symbol          string `csv:"Symbol"`
	Date            string `csv:"Date"`
	Acquirer        string `csv:"Acquirer"`
	ConversionRatio string `csv:"Conversion Ratio"`
}

// batch is one source file's normalized output.
type batch struct {
	trades    []models.TradeRecord
	dividends []models.DividendRecord
	skipped   int
}

// parseMoney strips currency decoration ("$1,234.50", "-$80.00") and parses
// the magnitude. Signs are dropped: direction comes from the action, not the
// amount.
func parseMoney(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "-")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	return strconv.ParseFloat(s, 64)
}

func parseUSDate(s string) (time.Time, error) {
	return time.Parse(usDateLayout, strings.TrimSpace(s))
}

func readCSV[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var rows []T
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, nil
}

// normalizeSchwab converts a Schwab export into trade and dividend records.
// Reinvestments are bookkeeping noise and skipped; rows whose action is
// neither trade nor dividend (transfers, fees) are skipped too.
func normalizeSchwab(path, accountType string) (*batch, error) {
	rows, err := readCSV[schwabRow](path)
	if err != nil {
		return nil, err
	}

	out := &batch{}
	for _, row := range rows {
		action := strings.ToLower(row.Action)
		symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))

		if strings.Contains(action, "reinvest") {
			out.skipped++
			continue
		}

		date, dateErr := parseUSDate(row.Date)

		switch {
		case strings.Contains(action, "div"):
			if dateErr != nil {
				return nil, &models.MalformedEventError{Source: path, Field: "date", Reason: dateErr.Error()}
			}
			amount, err := parseMoney(row.Amount)
			if err != nil {
				return nil, &models.MalformedEventError{Source: path, Field: "amount", Reason: err.Error()}
			}
			out.dividends = append(out.dividends, models.DividendRecord{
				Date: date, Symbol: symbol, Amount: amount, AccountType: accountType,
			})
		case action == "buy" || action == "sell":
			if dateErr != nil {
				return nil, &models.MalformedEventError{Source: path, Field: "date", Reason: dateErr.Error()}
			}
			trade, err := tradeFromStrings(path, date, symbol, action, row.Quantity, row.Price, row.Amount)
			if err != nil {
				return nil, err
			}
			trade.Brokerage = "schwab"
			trade.AccountType = accountType
			out.trades = append(out.trades, *trade)
		default:
			out.skipped++
		}
	}
	return out, nil
}

// normalizeTDAmeritrade converts a TD Ameritrade export. The symbol for
// dividend rows sometimes lives in the description after a "~".
func normalizeTDAmeritrade(path, accountType string) (*batch, error) {
	rows, err := readCSV[tdameritradeRow](path)
	if err != nil {
		return nil, err
	}

	out := &batch{}
	for _, row := range rows {
		description := strings.ToLower(row.Description)
		symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))

		date, dateErr := parseUSDate(row.Date)
		if dateErr != nil {
			return nil, &models.MalformedEventError{Source: path, Field: "date", Reason: dateErr.Error()}
		}

		switch {
		case strings.Contains(description, "dividend"):
			if i := strings.Index(description, "~"); i >= 0 {
				symbol = strings.ToUpper(strings.TrimSpace(description[i+1:]))
			}
			amount, err := parseMoney(row.Amount)
			if err != nil {
				return nil, &models.MalformedEventError{Source: path, Field: "amount", Reason: err.Error()}
			}
			out.dividends = append(out.dividends, models.DividendRecord{
				Date: date, Symbol: symbol, Amount: amount, AccountType: accountType,
			})
		case strings.Contains(description, "bought"), strings.Contains(description, "sold"):
			action := "buy"
			if strings.Contains(description, "sold") {
				action = "sell"
			}
			trade, err := tradeFromStrings(path, date, symbol, action, row.Quantity, row.Price, row.Amount)
			if err != nil {
				return nil, err
			}
			trade.Brokerage = "tdameritrade"
			trade.AccountType = accountType
			out.trades = append(out.trades, *trade)
		default:
			out.skipped++
		}
	}
	return out, nil
}

// normalizeWallmine converts a wallmine export (ISO dates, explicit type
// column).
func normalizeWallmine(path, accountType string) (*batch, error) {
	rows, err := readCSV[wallmineRow](path)
	if err != nil {
		return nil, err
	}

	out := &batch{}
	for _, row := range rows {
		action := strings.ToLower(strings.TrimSpace(row.Type))
		symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))

		date, dateErr := time.Parse("2006-01-02", strings.TrimSpace(row.Date))
		if dateErr != nil {
			return nil, &models.MalformedEventError{Source: path, Field: "date", Reason: dateErr.Error()}
		}

		switch action {
		case "dividend":
			amount, err := parseMoney(row.CurrentValue)
			if err != nil {
				return nil, &models.MalformedEventError{Source: path, Field: "current_value", Reason: err.Error()}
			}
			out.dividends = append(out.dividends, models.DividendRecord{
				Date: date, Symbol: symbol, Amount: amount, AccountType: accountType,
			})
		case "buy", "sell":
			trade, err := tradeFromStrings(path, date, symbol, action, row.Shares, row.CostPerShare, row.TotalCost)
			if err != nil {
				return nil, err
			}
			trade.Brokerage = "wallmine"
			trade.AccountType = accountType
			out.trades = append(out.trades, *trade)
		default:
			out.skipped++
		}
	}
	return out, nil
}

func tradeFromStrings(path string, date time.Time, symbol, action, quantity, price, amount string) (*models.TradeRecord, error) {
	numShares, err := parseMoney(quantity)
	if err != nil {
		return nil, &models.MalformedEventError{Source: path, Field: "quantity", Reason: err.Error()}
	}
	pricePerShare, err := parseMoney(price)
	if err != nil {
		return nil, &models.MalformedEventError{Source: path, Field: "price", Reason: err.Error()}
	}
	totalPrice, err := parseMoney(amount)
	if err != nil {
		return nil, &models.MalformedEventError{Source: path, Field: "amount", Reason: err.Error()}
	}
	if totalPrice == 0 {
		return nil, &models.MalformedEventError{Source: path, Field: "amount", Reason: "zero total"}
	}
	return &models.TradeRecord{
		Date:          date,
		Symbol:        symbol,
		Action:        action,
		NumShares:     numShares,
		PricePerShare: pricePerShare,
		TotalPrice:    totalPrice,
	}, nil
}

func parseEntities(path string) ([]models.Entity, error) {
	rows, err := readCSV[entityRow](path)
	if err != nil {
		return nil, err
	}
	entities := make([]models.Entity, 0, len(rows))
	for _, row := range rows {
		symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))
		if symbol == "" {
			return nil, &models.MalformedEventError{Source: path, Field: "symbol", Reason: "empty"}
		}
		entities = append(entities, models.Entity{
			Symbol:      symbol,
			Name:        strings.TrimSpace(row.Name),
			AssetType:   strings.TrimSpace(row.AssetType),
			Sector:      strings.TrimSpace(row.Sector),
			Geography:   strings.TrimSpace(row.Geography),
			AccountType: strings.TrimSpace(row.AccountType),
		})
	}
	return entities, nil
}

func parseSplits(path string) ([]models.SplitRecord, error) {
	rows, err := readCSV[splitRow](path)
	if err != nil {
		return nil, err
	}
	splits := make([]models.SplitRecord, 0, len(rows))
	for _, row := range rows {
		recordDate, err := parseUSDate(row.RecordDate)
		if err != nil {
			return nil, &models.MalformedEventError{Source: path, Field: "record_date", Reason: err.Error()}
		}
		distributionDate, err := parseUSDate(row.DistributionDate)
		if err != nil {
			return nil, &models.MalformedEventError{Source: path, Field: "distribution_date", Reason: err.Error()}
		}
		multiplier, err := strconv.ParseFloat(strings.TrimSpace(row.Multiplier), 64)
		if err != nil || multiplier <= 0 {
			return nil, &models.MalformedEventError{Source: path, Field: "multiplier", Reason: "must be a positive number"}
		}
		splits = append(splits, models.SplitRecord{
			RecordDate:       recordDate,
			DistributionDate: distributionDate,
			Symbol:           strings.ToUpper(strings.TrimSpace(row.Symbol)),
			Multiplier:       multiplier,
		})
	}
	return splits, nil
}

func parseAcquisitions(path string) ([]models.AcquisitionRecord, error) {
	rows, err := readCSV[acquisitionRow](path)
	if err != nil {
		return nil, err
	}
	acquisitions := make([]models.AcquisitionRecord, 0, len(rows))
	for _, row := range rows {
		date, err := parseUSDate(row.Date)
		if err != nil {
			return nil, &models.MalformedEventError{Source: path, Field: "date", Reason: err.Error()}
		}
		ratio, err := strconv.ParseFloat(strings.TrimSpace(row.ConversionRatio), 64)
		if err != nil || ratio <= 0 {
			return nil, &models.MalformedEventError{Source: path, Field: "conversion_ratio", Reason: "must be a positive number"}
		}
		acquisitions = append(acquisitions, models.AcquisitionRecord{
			Date:            date,
			Symbol:          strings.ToUpper(strings.TrimSpace(row.Symbol)),
			Acquirer:        strings.ToUpper(strings.TrimSpace(row.Acquirer)),
			ConversionRatio: ratio,
		})
	}
	return acquisitions, nil
}
