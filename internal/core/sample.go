package core

// SampleCompany names the business the sample dataset describes.
const SampleCompany = "TechGear Emporium"

type sampleRow struct {
	date                 string
	totalSales           float64
	orderCount           float64
	averageOrderValue    float64
	topCategory          string
	customerSatisfaction float64
	newCustomers         float64
	returnRate           float64
}

var sampleRows = []sampleRow{
	{"2023-01-01", 15780.45, 324, 48.71, "Electronics", 4.2, 87, 0.05},
	{"2023-02-01", 18920.3, 401, 47.18, "Home & Kitchen", 4.5, 103, 0.04},
	{"2023-03-01", 22450.75, 489, 45.91, "Electronics", 4.3, 131, 0.06},
	{"2023-04-01", 20100.6, 437, 46.0, "Sports & Outdoors", 4.4, 95, 0.03},
	{"2023-05-01", 25670.9, 562, 45.68, "Electronics", 4.6, 148, 0.05},
	{"2023-06-01", 28930.15, 634, 45.63, "Fashion", 4.7, 172, 0.07},
	{"2023-07-01", 30240.8, 659, 45.89, "Electronics", 4.5, 185, 0.04},
	{"2023-08-01", 32180.25, 701, 45.91, "Home & Kitchen", 4.4, 201, 0.06},
	{"2023-09-01", 27890.5, 607, 45.95, "Electronics", 4.3, 156, 0.05},
	{"2023-10-01", 29450.7, 640, 46.02, "Sports & Outdoors", 4.5, 178, 0.04},
	{"2023-11-01", 35780.9, 776, 46.11, "Electronics", 4.6, 223, 0.05},
	{"2023-12-01", 42560.3, 920, 46.26, "Fashion", 4.7, 287, 0.06},
}

// SampleRecords returns the twelve 2023 monthly records of the sample
// company. Each call returns fresh records.
func SampleRecords() []Record {
	out := make([]Record, len(sampleRows))
	for i, row := range sampleRows {
		out[i] = Record{
			Date: MustParseDate(row.date),
			Fields: []Field{
				{Name: "totalSales", Value: Number(row.totalSales)},
				{Name: "orderCount", Value: Number(row.orderCount)},
				{Name: "averageOrderValue", Value: Number(row.averageOrderValue)},
				{Name: "topCategory", Value: Text(row.topCategory)},
				{Name: "customerSatisfaction", Value: Number(row.customerSatisfaction)},
				{Name: "newCustomers", Value: Number(row.newCustomers)},
				{Name: "returnRate", Value: Number(row.returnRate)},
			},
		}
	}
	return out
}
