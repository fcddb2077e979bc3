package core

import "fmt"

// SystemPrompt is the fixed system instruction sent with every analysis
const SystemPrompt = `Du bist ein Assistent, der Lehrermails analysiert und strukturierte Regelungsvorschläge für die Schulsoftware UNTIS erstellt.`

// userPromptFormat embeds the email content into the extraction instructions
const userPromptFormat = `Werte die folgende E-Mail aus und fasse sie kompakt in diesem Format zusammen:

---
AUSGABEFORMAT:
<Kürzel der Lehrkraft>: <Typ> <Datum> <ggf. Uhrzeit oder Zeitraum> – <kurze Regelung oder Maßnahme>
---

Regeln:
- Bilde das Kürzel aus den ersten vier Buchstaben des Nachnamens und dem ersten Buchstaben des Vornamens (z. B. Clausen, Dirk = ClauD). Bekannte Ausnahmen wie PeMar, PetMa oder VosAn bleiben unverändert.
- Erlaubte Typen: krank, Raumbuchung, Fortbildung, Vertretungsregelung.
- Beschränke dich auf das Wesentliche, bleibe aber eindeutig.
- Bei Raumbuchungen: nenne den Raum und die Startzeit (z. B. „ab 8:15“).
- Bei Krankheit oder Fortbildung: nenne den Zeitraum und bereits vorhandene Vertretungsregelungen.
- Keine Anreden, keine Grußformeln, kein E-Mail-Stil.
- Schreibe Datumsangaben als TT.MM.JJJJ und Zeiträume als TT.MM.JJJJ-TT.MM.JJJJ.
- Die Küchenräume R015, R018, R115 und R118 dürfen nur von SievJ, PeteM, GellR und HantJ genutzt werden. Gib eine Warnung aus, wenn jemand anderes sie bucht.
- Fehlt ein Datum oder ist ein Kürzel nicht erkennbar, schreibe [Datum fehlt] bzw. [Kürzel nicht erkennbar].

---

E-Mail:
%s`

// BuildUserPrompt returns the user message for the given email content
func BuildUserPrompt(emailContent string) string {
	return fmt.Sprintf(userPromptFormat, emailContent)
}
