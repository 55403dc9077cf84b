package row

import "strings"

// ValidateRecords turns raw CSV records into rows with assigned line
// numbers and input statuses. It returns the rows in input order together
// with the line numbers of records that cannot be looked up because of an
// input defect (missing fields or a malformed postal code). Blank records
// keep their line number but are not reported as defective.
func ValidateRecords(records [][]string) ([]Row, []int) {
	rows := make([]Row, 0, len(records))
	var defective []int

	for i, record := range records {
		lineNumber := i + 1

		var zipcode, address string
		if len(record) >= 1 {
			zipcode = strings.TrimSpace(record[0])
		}
		if len(record) >= 2 {
			address = strings.TrimSpace(record[1])
		}

		normalizedZip := NormalizePostalCode(zipcode)
		normalizedAddr := NormalizeAddress(address)

		status := StatusOk
		switch {
		case zipcode == "" && address == "":
			status = StatusBlank
		case zipcode == "" || address == "":
			status = StatusMissingField
			defective = append(defective, lineNumber)
		case !ValidPostalCode(normalizedZip):
			status = StatusMalformedPostalCode
			defective = append(defective, lineNumber)
		}

		rows = append(rows, Row{
			LineNumber: lineNumber,
			PostalCode: normalizedZip,
			Address:    normalizedAddr,
			Status:     status,
			Judgement:  JudgementNotRun,
		})
	}

	return rows, defective
}
