package notify

// Email body templates. Placeholders are replaced by the renderer, not
// html/template - the AI-generated digest block is already HTML.

const welcomeTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f6f8;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:32px 16px;">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;overflow:hidden;">
        <tr><td style="background:#0f172a;padding:24px 32px;">
          <span style="color:#facc15;font-size:22px;font-weight:bold;">Allstar</span>
        </td></tr>
        <tr><td style="padding:32px;">
          <h1 style="margin:0 0 16px;font-size:20px;color:#0f172a;">Hi {{name}},</h1>
          <p style="margin:0 0 16px;font-size:15px;line-height:1.6;color:#334155;">{{intro}}</p>
          <p style="margin:0 0 16px;font-size:15px;line-height:1.6;color:#334155;">
            Add the stocks you care about to your watchlist and we will keep an eye
            on them for you - including a personalized market news digest every day.
          </p>
          <p style="margin:24px 0 0;font-size:14px;color:#64748b;">Best regards,<br>The Allstar Team</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

const newsSummaryTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f6f8;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:32px 16px;">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;overflow:hidden;">
        <tr><td style="background:#0f172a;padding:24px 32px;">
          <span style="color:#facc15;font-size:22px;font-weight:bold;">Allstar</span>
          <div style="color:#94a3b8;font-size:13px;margin-top:4px;">Daily Market News - {{date}}</div>
        </td></tr>
        <tr><td style="padding:32px;font-size:15px;line-height:1.6;color:#334155;">
          {{newsContent}}
        </td></tr>
        <tr><td style="padding:0 32px 32px;">
          <p style="margin:0;font-size:13px;color:#94a3b8;">
            You receive this digest because you have an Allstar account.
          </p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`
