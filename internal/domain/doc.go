// Package domain holds the rules shared by both dataset families: the error
// taxonomy, per-value cleaning, and the artifact record handed to stores.
//
// # Data Sources
//
// Water quality: CONAGUA publishes "TODOS LOS MONITOREOS", a workbook with
// three sheets in fixed order:
//
//	0  monitoring sites   CLAVE SITIO, ESTADO, MUNICIPIO, CUERPO DE AGUA,
//	                      TIPO CUERPO DE AGUA, SUBTIPO CUERPO AGUA, LATITUD, LONGITUD
//	1  measurements       CLAVE SITIO, FECHA REALIZACION, pollutant columns
//	2  dictionary         CLAVE PARÁMETRO, parameter name, unit
//
// Livestock: SIAP publishes one CSV per year ("cierre_<year>.csv"), encoded
// ISO-8859-1, with the columns
//
//	Anio, Cveestado, Nomestado, Cveddr, Nomddr, Cvempio, Nommunicipio,
//	Cveespecie, Nomespecie, Cveproducto, Nomproducto, Volumen, Precio,
//	Valor, Peso, Asacrificado
//
// # Censored Readings
//
// Laboratory results below or above the detection limit are reported as
// "<0.5" or ">2400". Cleaning strips the marker and keeps the threshold as the
// value. The direction of censoring is not preserved: "<0.5" and ">0.5" both
// become 0.5. Anything that still does not parse ("n/a", "S/M", "") becomes a
// missing value; the row itself is kept.
//
// # Locale-Formatted Amounts
//
// SIAP amounts may carry thousands separators and padding (" 1,234.5 ").
// Cleaning removes commas and surrounding whitespace and parses the rest. A
// value that still does not parse is kept as text so bad data stays visible
// in the output instead of disappearing.
//
// # Identity Keys
//
// Year, state code, municipality code and product code identify a livestock
// record. They must be integers; a value such as "202X" fails the whole run
// with a [CoercionError].
package domain
