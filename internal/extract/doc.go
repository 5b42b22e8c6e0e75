// Package extract turns raw HTML into structured page data.
//
// Extraction works on two independent parse trees. The first is left
// intact and yields the title, every outbound hyperlink and the metadata
// hints. The second is cleaned: navigation, headers, footers, scripts,
// cookie banners and similar boilerplate are removed before headings and
// text blocks are collected. Link classification never looks at the
// cleaned tree, so a link inside a removed menu still reaches the site
// graph.
package extract
