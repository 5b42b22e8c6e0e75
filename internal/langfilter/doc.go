// Package langfilter decides whether a page is in the crawl's target language.
//
// The decision uses the first conclusive source, in order:
//
//  1. a language declared by the document (<html lang>, a
//     content-language meta tag, or the Content-Language header);
//  2. a Detector run over the cleaned content text;
//  3. a language code in the URL path or query (/fr/, ?lang=es).
//
// A page whose language stays unknown is accepted.
package langfilter
