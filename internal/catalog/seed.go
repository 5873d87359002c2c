package catalog

type taskTemplate struct {
	id          string
	name        string
	description string
	taskType    string
}

var houses = []House{
	{ID: 1, Name: "Bakımsız Apartman", Theme: "abandoned", Floors: 3, HorrorType: "Gölgeler", Description: "Eski ve bakımsız bir apartman", TasksPerFloor: 3},
	{ID: 2, Name: "Terkedilmiş Malikâne", Theme: "mansion", Floors: 4, HorrorType: "Aynada görünen yaratık", Description: "Büyük ve karanlık bir malikane", TasksPerFloor: 3},
	{ID: 3, Name: "Yetimhane", Theme: "orphanage", Floors: 5, HorrorType: "Çocuk fısıltısı", Description: "Terk edilmiş yetimhane", TasksPerFloor: 3},
	{ID: 4, Name: "Tren Garı", Theme: "station", Floors: 3, HorrorType: "Anonslu jumpscare", Description: "Eski tren garı", TasksPerFloor: 3},
	{ID: 5, Name: "Fabrika", Theme: "factory", Floors: 4, HorrorType: "Metal sürtme sesleri", Description: "Terk edilmiş fabrika", TasksPerFloor: 3},
	{ID: 6, Name: "Orman içi ev", Theme: "forest", Floors: 3, HorrorType: "Ağaçlarda yaratık", Description: "Ormanda kaybolmuş ev", TasksPerFloor: 3},
	{ID: 7, Name: "Lüks villa", Theme: "villa", Floors: 5, HorrorType: "Sessizlik + ani ışık", Description: "Lüks ama lanetli villa", TasksPerFloor: 3},
	{ID: 8, Name: "Terkedilmiş hastane", Theme: "hospital", Floors: 5, HorrorType: "Hasta yatakları", Description: "Eski hastane binası", TasksPerFloor: 3},
	{ID: 9, Name: "Laboratuvar", Theme: "lab", Floors: 4, HorrorType: "Biyolojik varlıklar", Description: "Araştırma laboratuvarı", TasksPerFloor: 3},
	{ID: 10, Name: "Kütüphane", Theme: "library", Floors: 3, HorrorType: "Kitaplar düşüyor, notlar yazıyor", Description: "Büyük eski kütüphane", TasksPerFloor: 3},
}

var taskTemplates = []taskTemplate{
	{id: "fix_power", name: "Sigorta Kutusunu Onar", description: "Işıklar gelsin", taskType: "repair"},
	{id: "fix_photo", name: "Eski Fotoğrafı Yeniden Kur", description: "Parçaları sırayla birleştir", taskType: "puzzle"},
	{id: "open_coded_door", name: "Kodlu Kapıyı Aç", description: "Sayıları evdeki nesnelerden bul", taskType: "puzzle"},
	{id: "fix_toy", name: "Kurmalı Oyuncak Tamiri", description: "Dişlileri sırayla tak", taskType: "repair"},
	{id: "reopen_door", name: "Kapanan Kapıyı Yeniden Aç", description: "Diğer katlardan güç ver", taskType: "interact"},
	{id: "adjust_radio", name: "Radyo Frekansı Ayarla", description: "Doğru frekansla gizli mesajı al", taskType: "interact"},
	{id: "find_key", name: "Kayıp Anahtarı Bul", description: "Random spawn – herkes arar", taskType: "collect"},
	{id: "fix_leak", name: "Su Sızıntısını Kapat", description: "Boru parçalarını birleştir", taskType: "repair"},
	{id: "sort_books", name: "Kitapları Sıralama", description: "Harf sırasına göre yerleştir", taskType: "puzzle"},
	{id: "collect_notebook", name: "Not Defterini Topla", description: "Sayfalar 4 farklı yerde", taskType: "collect"},
}
