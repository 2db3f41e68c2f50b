package engine

// capitalizedBlacklist holds common capitalized words of legal and
// administrative documents that the NAME_FULL heuristic would otherwise flag
// as proper names: section headers, months, weekdays and generic nouns.
// Static tuning data, checked per word of a candidate match.
var capitalizedBlacklist = map[string]struct{}{
	"Investigación": {}, "Informe": {}, "Fecha": {}, "Detective": {},
	"Número": {}, "Cliente": {}, "Introducción": {}, "Desarrollo": {},
	"Observaciones": {}, "Registro": {}, "Conclusión": {}, "Firma": {},
	"Sello": {}, "Calle": {}, "Madrid": {}, "Club": {}, "Deportivo": {},
	"Pádel": {}, "Empresa": {}, "Propósito": {}, "Vigilancia": {},
	"Seguimiento": {}, "Identidad": {}, "Trabajadora": {}, "Redes": {},
	"Sociales": {}, "Imágenes": {}, "Videos": {}, "Dolencia": {},
	"Baja": {}, "Médica": {}, "Lumbalgia": {},
	"Enero": {}, "Febrero": {}, "Marzo": {}, "Abril": {}, "Mayo": {},
	"Junio": {}, "Julio": {}, "Agosto": {}, "Septiembre": {},
	"Octubre": {}, "Noviembre": {}, "Diciembre": {},
	"Lunes": {}, "Martes": {}, "Miércoles": {}, "Jueves": {},
	"Viernes": {}, "Sábado": {}, "Domingo": {},
}

func isBlacklistedWord(word string) bool {
	_, ok := capitalizedBlacklist[word]
	return ok
}
