package features

// Route says which matrix a field lands in.
type Route string

const (
	RouteWide Route = "wide"
	RouteDeep Route = "deep"
)

// SchemaVersion is bumped whenever field routing or ordering changes.
// Checkpoints and encoders are only valid against the schema version they
// were produced with.
const SchemaVersion = 1

// Field is one column of the encoded output. Routing is declared statically;
// nothing is inferred from column names.
type Field struct {
	Name  string
	Route Route
}

// schema is the fixed column layout, in output order per route.
var schema = []Field{
	{Name: "customer_id", Route: RouteWide},
	{Name: "order_id", Route: RouteWide},
	{Name: "product_id", Route: RouteWide},
	{Name: "gender", Route: RouteWide},
	{Name: "order_month", Route: RouteWide},
	{Name: "coupon_code", Route: RouteWide},
	{Name: "customer_city", Route: RouteWide},
	{Name: "coupon_used", Route: RouteWide},

	{Name: "order_date", Route: RouteDeep},
	{Name: "product_category", Route: RouteDeep},
	{Name: "quantity", Route: RouteDeep},
	{Name: "avg_price_per_item", Route: RouteDeep},
	{Name: "shipping_fee", Route: RouteDeep},
	{Name: "membership_days", Route: RouteDeep},
	{Name: "gst_rate", Route: RouteDeep},
	{Name: "discount_value", Route: RouteDeep},
	{Name: "order_amount", Route: RouteDeep},
}

// Schema returns the full field list in declaration order.
func Schema() []Field {
	out := make([]Field, len(schema))
	copy(out, schema)
	return out
}

// Columns returns the ordered field names for one route.
func Columns(route Route) []string {
	var out []string
	for _, f := range schema {
		if f.Route == route {
			out = append(out, f.Name)
		}
	}
	return out
}

// WideDim and DeepDim are the matrix widths implied by the schema.
func WideDim() int { return len(Columns(RouteWide)) }
func DeepDim() int { return len(Columns(RouteDeep)) }
