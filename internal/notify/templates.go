package notify

import "strings"

// MessageData is the placeholder set shared by every guest-facing template.
type MessageData struct {
	GuestName     string
	ApartmentName string
	FullPIN       string
	Arrival       string
	Departure     string
}

type template struct {
	subject string
	message string
}

// DefaultLanguage is used for any language code without a template.
const DefaultLanguage = "en"

var templates = map[string]template{
	"en": {
		subject: "Kolna Apartments access codes and information",
		message: `Dear {guest_name},

- Main building "Jana z Kolna 19" code is 1 + KEY + 5687
- Lobby door code is 3256 + ENTER
- Apartment {apartment_name} door code is {full_pin} + BLUE BUTTON

Your apartment code will ONLY work between the check in and check out date and time.
Your check in: {arrival} from 15.00
Your check out: {departure} until 12.00

PARKING : A lot of parking spaces are located on the street near Kolna Apartments. Parking is free from 5pm to 8am and during weekends and holidays, pricing: https://spp.szczecin.pl/informacja/paid-parking-zone-pricing

In case of any issue, please feel free to call us +48 91 819 99 65

We wish you a very pleasant stay,
Kolna Apartments`,
	},
	"de": {
		subject: "Zugangscodes für die Kolna Apartments",
		message: `Lieber, Herr {guest_name},

- Hauptgebäude "Jana z Kolna 19" Code ist 1 + SCHLÜSSEL + 5687
- Lobby-Türcode ist 3256 + ENTER
- Der Türcode für das Apartment {apartment_name} lautet {full_pin} + BLAUE TASTE

Ihr Apartmentcode funktioniert NUR zwischen Check-in- und Check-out-Datum und -Uhrzeit.
Ihr Check-in: {arrival} ab 15.00 Uhr.
Ihr Check-out: {departure} bis 12.00 Uhr.

PARKING : Viele Parkplätze befinden sich auf der Straße in der Nähe der Kolna Apartments. Das Parken ist von 17:00 bis 08:00 Uhr sowie an Wochenenden und Feiertagen kostenlos, Preisliste: https://spp.szczecin.pl/informacja/SPP-Preisliste

Bei Problemen können Sie uns gerne unter +48 91 819 99 65 anrufen.

Wir wünschen Ihnen einen sehr angenehmen Aufenthalt,
Kolna Apartments`,
	},
	"pl": {
		subject: "Kody dostępu do Kolna Apartments",
		message: `Pan, Pani {guest_name},

- Kod budynku głównego "Jana z Kolna 19" to 1 + KLUCZ + 5687
- Kod do recepcji to 3256 + ENTER
- Kod apartamentu {apartment_name} to {full_pin} + NIEBIESKI PRZYCISK

Twój kod apartamentu będzie działał TYLKO pomiędzy datą i godziną zameldowania i wymeldowania.
Twoje zameldowanie: {arrival} od 15.00
Twoje wymeldowanie: {departure} do 12.00

PARKING : Dużo miejsc parkingowych znajduje się przy ulicy pod Kolna Apartments. Parking jest bezpłatny od 17:00 do 8:00 oraz w weekendy i święta, cennik: https://spp.szczecin.pl/informacja/cennik-strefy-platnego-parkowania

W przypadku jakichkolwiek problemów prosimy o kontakt telefoniczny +48 91 819 99 65

Życzymy miłego pobytu,
Kolna Apartments`,
	},
	"ru": {
		subject: "Коды доступа Kolna Apartments",
		message: `Уважаемый {guest_name},

- Код главного здания "Jana z Kolna 19" - 1 + КЛЮЧ + 5687
- Код двери в холл - 3256 + ENTER
- Код двери апартаментов {apartment_name} - {full_pin} + СИНЯЯ КНОПКА

Ваш код апартаментов будет работать ТОЛЬКО между датой и временем заезда и выезда.
Ваш заезд: {arrival} с 15.00
Ваш выезд: {departure} до 12.00

ПАРКОВКА: Много парковочных мест расположено на улице возле Kolna Apartments. Парковка бесплатна с 17:00 до 08:00, а также в выходные и праздничные дни, цены: https://spp.szczecin.pl/informacja/paid-parking-zone-pricing

В случае возникновения проблем звоните нам +48 91 819 99 65

Желаем вам приятного отдыха,
Kolna Apartments`,
	},
	"uk": {
		subject: "Коди доступу Kolna Apartments",
		message: `Шановний {guest_name},

- Код головної будівлі "Jana z Kolna 19" - 1 + КЛЮЧ + 5687
- Код дверей у холл - 3256 + ENTER
- Код дверей апартаментів {apartment_name} - {full_pin} + СИНЯ КНОПКА

Ваш код апартаментів буде працювати ЛИШЕ між датою та часом заїзду та від'їзду.
Ваш заїзд: {arrival} з 15.00
Ваш від'їзд: {departure} до 12.00

ПАРКУВАННЯ: Багато паркувальних місць розташовано на вулиці біля Kolna Apartments. Парковка безкоштовна з 17:00 до 08:00, а також у вихідні та святкові дні, ціни: https://spp.szczecin.pl/informacja/paid-parking-zone-pricing

У разі виникнення проблем телефонуйте нам +48 91 819 99 65

Бажаємо вам приємного відпочинку,
Kolna Apartments`,
	},
}

// Render returns the subject and body for a guest language, substituting
// placeholders. Unknown language codes fall back to English.
func Render(language string, data MessageData) (subject, body string) {
	tpl, ok := templates[strings.ToLower(language)]
	if !ok {
		tpl = templates[DefaultLanguage]
	}

	r := strings.NewReplacer(
		"{guest_name}", data.GuestName,
		"{apartment_name}", data.ApartmentName,
		"{full_pin}", data.FullPIN,
		"{arrival}", data.Arrival,
		"{departure}", data.Departure,
	)
	return tpl.subject, r.Replace(tpl.message)
}
