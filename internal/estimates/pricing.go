package estimates

import "github.com/shopspring/decimal"

// servicePrice is the static labor/parts price for a catalog service.
type servicePrice struct {
	Labor decimal.Decimal
	Parts decimal.Decimal
}

// pricingTable maps service names to their fixed pricing. Unknown services
// price at zero and get costed by the mechanic later.
var pricingTable = map[string]servicePrice{
	"Oil Change":        {Labor: decimal.NewFromInt(50), Parts: decimal.NewFromInt(45)},
	"Brake Repair":      {Labor: decimal.NewFromInt(150), Parts: decimal.NewFromInt(120)},
	"Engine Diagnostic": {Labor: decimal.NewFromInt(120), Parts: decimal.Zero},
	"General Repair":    {Labor: decimal.NewFromInt(100), Parts: decimal.NewFromInt(50)},
}

const fallbackServiceImage = "General Repair"

// serviceImages maps catalog services to their card images.
var serviceImages = map[string]string{
	"Oil Change":        "https://images.unsplash.com/photo-1486262715619-67b85e0b08d3?auto=format&fit=crop&w=300&q=80",
	"Brake Repair":      "https://images.unsplash.com/photo-1597762470488-387751f538c6?auto=format&fit=crop&w=300&q=80",
	"Engine Diagnostic": "https://images.unsplash.com/photo-1533473359331-0135ef1b58bf?auto=format&fit=crop&w=300&q=80",
	"General Repair":    "https://images.unsplash.com/photo-1625043484550-df60256f6ea5?auto=format&fit=crop&w=300&q=80",
}

func priceFor(serviceName string) servicePrice {
	if price, ok := pricingTable[serviceName]; ok {
		return price
	}
	return servicePrice{Labor: decimal.Zero, Parts: decimal.Zero}
}

func imageFor(serviceName string) string {
	if img, ok := serviceImages[serviceName]; ok {
		return img
	}
	return serviceImages[fallbackServiceImage]
}
