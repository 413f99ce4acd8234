package activity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minutebook/timeline"
)

const export = `<?xml version="1.0" encoding="utf-8"?>
<reports>
  <report>
    <name>Сайты</name>
    <user>
      <fio>Alice</fio>
      <user_name>alice</user_name>
      <item>
        <desc>Почта</desc>
        <url>mail.example.com</url>
        <title>Inbox</title>
        <stime>2024-06-01 09:00:40</stime>
      </item>
    </user>
  </report>
  <report>
    <name>Программы</name>
    <user>
      <fio>Alice</fio>
      <item><desc>Excel</desc><path>C:\excel.exe</path><stime>2024-06-01 09:00:10</stime></item>
      <item><desc>Excel</desc><stime>2024-06-01 09:01:00</stime></item>
      <item><desc>Chrome</desc><stime>unknown</stime></item>
    </user>
    <user>
      <fio>Телефон приёмной</fio>
      <item><desc>Dialer</desc><stime>2024-06-01 09:00:00</stime></item>
    </user>
    <user>
      <fio>Петров И.</fio>
      <item><desc>1C</desc><stime>2024-05-31 17:30:00</stime></item>
    </user>
  </report>
  <report>
    <name>Клавиатура</name>
    <user><fio>Alice</fio><item><desc>typing</desc><stime>2024-06-01 08:00:00</stime></item></user>
  </report>
</reports>`

func TestParse(t *testing.T) {
	res, err := Parse(strings.NewReader(export), Options{Aliases: map[string]string{"Петров И.": "Petrov"}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, []Entry{
		{Employee: "Petrov", Key: timeline.Key{Date: "2024-05-31", Time: "17:30"}, Program: "1C"},
		{Employee: "Alice", Key: timeline.Key{Date: "2024-06-01", Time: "09:00"}, Program: "Excel"},
		{Employee: "Alice", Key: timeline.Key{Date: "2024-06-01", Time: "09:00"}, Program: "Почта", Site: "mail.example.com"},
		{Employee: "Alice", Key: timeline.Key{Date: "2024-06-01", Time: "09:01"}, Program: "Excel"},
	}, res.Entries)
}

func TestParseSingleReportRoot(t *testing.T) {
	doc := `<report><user><fio>Bob</fio><item><desc>Word</desc><stime>01.06.2024 10:15:00</stime></item></user><name>Программы</name></report>`

	res, err := Parse(strings.NewReader(doc), Options{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, Entry{Employee: "Bob", Key: timeline.Key{Date: "2024-06-01", Time: "10:15"}, Program: "Word"}, res.Entries[0])
}

func TestParseWindows1251(t *testing.T) {
	// "Сайты" in windows-1251
	doc := "<?xml version=\"1.0\" encoding=\"windows-1251\"?>" +
		"<report><name>\xd1\xe0\xe9\xf2\xfb</name><user><fio>Ivanov</fio>" +
		"<item><url>ya.ru</url><stime>2024-06-01 09:00:00</stime></item></user></report>"

	res, err := Parse(strings.NewReader(doc), Options{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "ya.ru", res.Entries[0].Site)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(`<report><name>Клавиатура</name></report>`), Options{})
	assert.ErrorIs(t, err, ErrNoReports)

	_, err = Parse(strings.NewReader(`<report><name>Сайты</name><user>`), Options{})
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.xml"), Options{})
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.xml")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o644))

	res, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 4)
	assert.Equal(t, "Петров И.", res.Entries[0].Employee)
}
