package view

import (
	"github.com/nfrund/smartshop/internal/market"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"
)

// MonitorFragmentPath serves MonitorFragment for htmx polling.
const MonitorFragmentPath = "/admin/monitor/fragment"

// MonitorRefresh is the htmx trigger of the monitor fragment.
const MonitorRefresh = "every 2s"

// MonitorPage is the body of the admin monitor page.
func MonitorPage(snap *market.MonitorSnapshot) g.Node {
	return h.Main(
		h.Class("container mx-auto p-8"),
		h.H1(h.Class("text-3xl font-bold mb-6"), g.Text("Market Monitor")),
		MonitorFragment(snap),
	)
}

// MonitorFragment renders the totals and the inventory table. It replaces
// itself with a fresh copy every two seconds.
func MonitorFragment(snap *market.MonitorSnapshot) g.Node {
	return h.Div(
		h.ID("monitor"),
		hx.Get(MonitorFragmentPath),
		hx.Trigger(MonitorRefresh),
		hx.Swap("outerHTML"),
		h.Div(
			h.Class("grid grid-cols-3 gap-4 mb-8"),
			statCard("Total revenue", FormatCoins(snap.TotalRevenue)),
			statCard("Transactions", FormatCount(snap.TotalTransactions)),
			statCard("Players", FormatCount(snap.PlayerCount)),
		),
		h.Table(
			h.Class("w-full bg-white shadow rounded"),
			h.THead(h.Tr(
				h.Th(g.Text("Product")),
				h.Th(g.Text("Price")),
				h.Th(g.Text("Stock")),
				h.Th(g.Text("Revenue potential")),
			)),
			h.TBody(g.Map(snap.Products, productRow)),
		),
	)
}

func statCard(label, value string) g.Node {
	return h.Div(
		h.Class("p-6 bg-white rounded-lg shadow"),
		h.Div(h.Class("text-sm text-gray-500"), g.Text(label)),
		h.Div(h.Class("text-2xl font-semibold"), g.Text(value)),
	)
}

func productRow(p market.MonitorProduct) g.Node {
	stockClass := "text-gray-900"
	if p.Stock == 0 {
		stockClass = "text-red-600 font-semibold"
	}
	return h.Tr(
		h.Td(
			h.Class("flex items-center gap-3 p-2"),
			g.If(p.Image != "", h.Img(h.Src(p.Image), h.Alt(p.Name), h.Class("w-10 h-10 rounded object-cover"))),
			h.Span(g.Text(p.Name)),
		),
		h.Td(g.Text(FormatCoins(p.Price))),
		h.Td(h.Class(stockClass), g.Text(FormatCount(p.Stock))),
		h.Td(g.Text(FormatCoins(p.RevenuePotential))),
	)
}
